package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
	"gorm.io/gorm"
)

func openRepositoriesForTest(t *testing.T) (*gorm.DB, *Repositories) {
	t.Helper()

	database := openSQLiteForMigrationBootstrapTest(t, filepath.Join(t.TempDir(), "bemcuidar-repos.db"))
	return database, NewRepositories(database)
}

func TestUserEmailUniqueIndexIsCaseInsensitive(t *testing.T) {
	database, _ := openRepositoriesForTest(t)

	firstUser := models.User{
		Email:        "Maria.Silva@Example.com",
		PasswordHash: "hash-1",
		Role:         models.RoleMember,
		CreatedAt:    time.Now().UTC(),
	}
	if err := database.Create(&firstUser).Error; err != nil {
		t.Fatalf("create first user: %v", err)
	}

	secondUser := models.User{
		Email:        "maria.silva@example.com",
		PasswordHash: "hash-2",
		Role:         models.RoleMember,
		CreatedAt:    time.Now().UTC(),
	}
	if err := database.Create(&secondUser).Error; err == nil {
		t.Fatal("expected duplicate normalized email insert to fail")
	}
}

func TestCreateWithProfileStoresRegistration(t *testing.T) {
	_, repos := openRepositoriesForTest(t)

	birthDate := time.Date(1980, time.March, 10, 0, 0, 0, 0, time.UTC)
	lastDate := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	user := models.User{
		Email:        "ana@example.com",
		PasswordHash: "hash",
		Role:         models.RoleMember,
		FullName:     "Ana Souza",
		CPF:          "12345678901",
		Sex:          models.SexFemale,
		BirthDate:    &birthDate,
		Address:      models.Address{ZipCode: "01001000", City: "São Paulo", State: "SP"},
	}
	profile := models.HealthProfile{
		SmokingStatus:   models.SmokingFormer,
		HasHypertension: true,
		FamilyHistory:   models.FamilyHistory{BreastCancer: true},
	}
	history := []models.ExamHistory{{ExamKey: "mammography", Done: true, LastDate: &lastDate}}

	if err := repos.Users.CreateWithProfile(&user, &profile, history); err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if user.ID == 0 || profile.UserID != user.ID {
		t.Fatalf("expected profile to belong to user %d, got %d", user.ID, profile.UserID)
	}

	storedProfile, err := repos.HealthProfiles.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if storedProfile.SmokingStatus != models.SmokingFormer || !storedProfile.HasHypertension || !storedProfile.FamilyHistory.BreastCancer {
		t.Fatalf("unexpected stored profile: %+v", storedProfile)
	}

	entries, err := repos.ExamHistories.ListByUserID(user.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].ExamKey != "mammography" || !entries[0].Done {
		t.Fatalf("unexpected history: %+v", entries)
	}

	exists, err := repos.Users.ExistsByCPF("12345678901")
	if err != nil || !exists {
		t.Fatalf("expected cpf to exist, exists=%v err=%v", exists, err)
	}
}

func TestHealthProfileUpsertReplacesAnswers(t *testing.T) {
	_, repos := openRepositoriesForTest(t)

	user := models.User{Email: "joao@example.com", PasswordHash: "hash", Role: models.RoleMember}
	profile := models.HealthProfile{SmokingStatus: models.SmokingCurrent, HasDiabetes: true}
	if err := repos.Users.CreateWithProfile(&user, &profile, nil); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	replacement := models.HealthProfile{
		UserID:        user.ID,
		SmokingStatus: models.SmokingNever,
		HasObesity:    true,
	}
	if err := repos.HealthProfiles.Upsert(&replacement); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	stored, err := repos.HealthProfiles.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if stored.SmokingStatus != models.SmokingNever {
		t.Fatalf("expected smoking status never, got %q", stored.SmokingStatus)
	}
	if stored.HasDiabetes {
		t.Fatal("expected diabetes flag to be cleared by upsert")
	}
	if !stored.HasObesity {
		t.Fatal("expected obesity flag to be stored")
	}
}

func TestExamHistoryUpsertKeepsOneRowPerExam(t *testing.T) {
	_, repos := openRepositoriesForTest(t)

	user := models.User{Email: "carla@example.com", PasswordHash: "hash", Role: models.RoleMember}
	profile := models.HealthProfile{SmokingStatus: models.SmokingNever}
	if err := repos.Users.CreateWithProfile(&user, &profile, nil); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	first := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)
	for _, lastDate := range []time.Time{first, second} {
		value := lastDate
		if err := repos.ExamHistories.Upsert(&models.ExamHistory{UserID: user.ID, ExamKey: "papSmear", Done: true, LastDate: &value}); err != nil {
			t.Fatalf("upsert history: %v", err)
		}
	}

	entries, err := repos.ExamHistories.ListByUserID(user.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one row, got %d", len(entries))
	}
	if entries[0].LastDate == nil || entries[0].LastDate.Format("2006-01-02") != "2025-02-20" {
		t.Fatalf("expected latest date to win, got %v", entries[0].LastDate)
	}
}

func TestDeleteAccountRemovesRelatedData(t *testing.T) {
	_, repos := openRepositoriesForTest(t)

	user := models.User{Email: "del@example.com", PasswordHash: "hash", Role: models.RoleMember}
	profile := models.HealthProfile{SmokingStatus: models.SmokingNever}
	history := []models.ExamHistory{{ExamKey: "bloodTests"}}
	if err := repos.Users.CreateWithProfile(&user, &profile, history); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	if err := repos.Users.DeleteAccountAndRelatedData(user.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := repos.Users.FindByID(user.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected user to be gone, got %v", err)
	}
	if _, err := repos.HealthProfiles.FindByUserID(user.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected profile to be gone, got %v", err)
	}
	entries, err := repos.ExamHistories.ListByUserID(user.ID)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no history rows, got %d err=%v", len(entries), err)
	}
}

func TestReminderRecipientsSkipOptedOutUsers(t *testing.T) {
	_, repos := openRepositoriesForTest(t)

	optedIn := models.User{Email: "in@example.com", PasswordHash: "hash", Role: models.RoleMember}
	optedOut := models.User{Email: "out@example.com", PasswordHash: "hash", Role: models.RoleMember}
	for _, user := range []*models.User{&optedIn, &optedOut} {
		if err := repos.Users.Create(user); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := repos.Users.UpdateByID(optedOut.ID, map[string]any{"reminders_enabled": false}); err != nil {
		t.Fatalf("opt out: %v", err)
	}

	recipients, err := repos.Users.ListReminderRecipients()
	if err != nil {
		t.Fatalf("list recipients: %v", err)
	}
	if len(recipients) != 1 || recipients[0].ID != optedIn.ID {
		t.Fatalf("expected only opted-in user, got %+v", recipients)
	}

	sentAt := time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)
	if err := repos.Users.MarkReminderSent(optedIn.ID, sentAt); err != nil {
		t.Fatalf("mark reminder sent: %v", err)
	}
	stored, err := repos.Users.FindByID(optedIn.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.LastReminderAt == nil || !stored.LastReminderAt.Equal(sentAt) {
		t.Fatalf("expected last reminder at %s, got %v", sentAt, stored.LastReminderAt)
	}
}
