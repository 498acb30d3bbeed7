package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/terraincognita07/bemcuidar/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type stubAccountUsers struct {
	user              models.User
	updatePasswordErr error
	passwordUpdates   int
	fieldUpdates      map[string]any
}

func (stub *stubAccountUsers) FindByID(userID uint) (models.User, error) {
	if userID != stub.user.ID {
		return models.User{}, errors.New("not found")
	}
	return stub.user, nil
}

func (stub *stubAccountUsers) UpdatePassword(_ uint, passwordHash string, mustChangePassword bool) error {
	if stub.updatePasswordErr != nil {
		return stub.updatePasswordErr
	}
	stub.passwordUpdates++
	stub.user.PasswordHash = passwordHash
	stub.user.MustChangePassword = mustChangePassword
	return nil
}

func (stub *stubAccountUsers) UpdateByID(_ uint, updates map[string]any) error {
	stub.fieldUpdates = updates
	stub.user.FullName = updates["full_name"].(string)
	stub.user.Phone = updates["phone"].(string)
	stub.user.Address.City = updates["address_city"].(string)
	return nil
}

func newAccountFixture(t *testing.T, password string) *stubAccountUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &stubAccountUsers{user: models.User{ID: 42, PasswordHash: string(hash)}}
}

func TestValidatePasswordChange(t *testing.T) {
	users := newAccountFixture(t, "atual123")

	cases := []struct {
		name    string
		current string
		next    string
		confirm string
		want    error
	}{
		{name: "missing input", current: "", next: "nova1234", confirm: "nova1234", want: ErrPasswordChangeInvalidInput},
		{name: "mismatch", current: "atual123", next: "nova1234", confirm: "nova12345", want: ErrPasswordMismatch},
		{name: "wrong current", current: "errada12", next: "nova1234", confirm: "nova1234", want: ErrInvalidCurrentPassword},
		{name: "unchanged", current: "atual123", next: "atual123", confirm: "atual123", want: ErrNewPasswordMustDiffer},
		{name: "weak", current: "atual123", next: "abc", confirm: "abc", want: ErrWeakPassword},
		{name: "valid", current: "atual123", next: "nova1234", confirm: "nova1234", want: nil},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			err := ValidatePasswordChange(users.user.PasswordHash, testCase.current, testCase.next, testCase.confirm)
			if !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}

func TestChangePasswordUpdatesHash(t *testing.T) {
	users := newAccountFixture(t, "atual123")
	service := NewAccountService(users)
	previousHash := users.user.PasswordHash

	user, err := service.ChangePassword(42, "atual123", "nova1234", "nova1234")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("nova1234")) != nil {
		t.Fatal("expected returned hash to match the new password")
	}
	if IsPasswordStateFingerprintMatch(PasswordStateFingerprint(previousHash), user.PasswordHash) {
		t.Fatal("expected password state fingerprint to change")
	}
}

func TestChangePasswordValidationAndUpdateErrors(t *testing.T) {
	users := newAccountFixture(t, "atual123")
	service := NewAccountService(users)

	if _, err := service.ChangePassword(42, "errada12", "nova1234", "nova1234"); !errors.Is(err, ErrInvalidCurrentPassword) {
		t.Fatalf("expected ErrInvalidCurrentPassword, got %v", err)
	}
	if users.passwordUpdates != 0 {
		t.Fatal("expected no update on validation error")
	}

	users.updatePasswordErr = errors.New("write failure")
	if _, err := service.ChangePassword(42, "atual123", "nova1234", "nova1234"); !errors.Is(err, ErrPasswordUpdateFailed) {
		t.Fatalf("expected ErrPasswordUpdateFailed, got %v", err)
	}
}

func TestUpdateAccountNormalizesFields(t *testing.T) {
	users := newAccountFixture(t, "atual123")
	service := NewAccountService(users)

	user, err := service.UpdateAccount(42, AccountUpdate{
		FullName: "  Maria   Souza ",
		Phone:    "(21) 99999-0000",
		Address: models.Address{
			ZipCode:      "20040-002",
			Street:       "Rua da Assembleia",
			Number:       "10",
			Neighborhood: "Centro",
			City:         " Rio de Janeiro ",
			State:        "rj",
		},
	})
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if user.FullName != "Maria Souza" || user.Phone != "21999990000" || user.Address.City != "Rio de Janeiro" {
		t.Fatalf("unexpected user %+v", user)
	}
	if users.fieldUpdates["address_state"] != "RJ" || users.fieldUpdates["address_zip_code"] != "20040002" {
		t.Fatalf("unexpected address updates %+v", users.fieldUpdates)
	}
}

func TestNormalizeAccountUpdateRejections(t *testing.T) {
	address := models.Address{ZipCode: "20040002", Street: "Rua", Number: "1", Neighborhood: "Centro", City: "Rio", State: "RJ"}

	cases := []struct {
		name   string
		update AccountUpdate
		want   error
	}{
		{name: "missing name", update: AccountUpdate{Phone: "21999990000", Address: address}, want: ErrRegistrationFieldsMissing},
		{name: "short phone", update: AccountUpdate{FullName: "Maria", Phone: "9999", Address: address}, want: ErrInvalidPhone},
		{name: "incomplete address", update: AccountUpdate{FullName: "Maria", Phone: "21999990000"}, want: ErrAddressIncomplete},
		{name: "long name", update: AccountUpdate{FullName: strings.Repeat("a", maxFullNameLength+1), Phone: "21999990000", Address: address}, want: ErrFullNameTooLong},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := NormalizeAccountUpdate(testCase.update); !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}
