package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

var riskNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func profileAged(years int) models.HealthProfile {
	return models.HealthProfile{
		BirthDate:     riskNow.AddDate(-years, 0, 0),
		SmokingStatus: models.SmokingNever,
	}
}

func recommendationKeys(recommendations []ExamRecommendation) []string {
	keys := make([]string, 0, len(recommendations))
	for _, recommendation := range recommendations {
		keys = append(keys, recommendation.Key)
	}
	return keys
}

func findRecommendation(recommendations []ExamRecommendation, key string) (ExamRecommendation, bool) {
	for _, recommendation := range recommendations {
		if recommendation.Key == key {
			return recommendation, true
		}
	}
	return ExamRecommendation{}, false
}

func TestAssessHealthRisksFamilyBreastCancerAtFortyFive(t *testing.T) {
	profile := profileAged(45)
	profile.FamilyHistory.BreastCancer = true

	recommendations := AssessHealthRisks(profile, riskNow)

	wantKeys := []string{
		RecommendationMammography,
		RecommendationColonoscopy,
		RecommendationCardiovascular,
		RecommendationBloodPanel,
		RecommendationDermatology,
	}
	gotKeys := recommendationKeys(recommendations)
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("recommendations = %v, want %v", gotKeys, wantKeys)
	}
	for index := range wantKeys {
		if gotKeys[index] != wantKeys[index] {
			t.Fatalf("recommendations = %v, want %v", gotKeys, wantKeys)
		}
	}

	mammography := recommendations[0]
	if mammography.Exam != "Mamografia" || mammography.Priority != RecommendationPriorityHigh {
		t.Fatalf("unexpected mammography recommendation: %+v", mammography)
	}
	if mammography.StartAge == nil || *mammography.StartAge != 35 {
		t.Fatalf("expected start age 35, got %v", mammography.StartAge)
	}
}

func TestAssessHealthRisksMinimalProfileGetsOnlyBloodPanel(t *testing.T) {
	for name, profile := range map[string]models.HealthProfile{
		"newborn":            profileAged(0),
		"missing birth date": {},
	} {
		t.Run(name, func(t *testing.T) {
			recommendations := AssessHealthRisks(profile, riskNow)
			if len(recommendations) != 1 || recommendations[0].Key != RecommendationBloodPanel {
				t.Fatalf("expected only the blood panel, got %v", recommendationKeys(recommendations))
			}
			if recommendations[0].Frequency != "Anual" || recommendations[0].Priority != RecommendationPriorityMedium {
				t.Fatalf("unexpected blood panel: %+v", recommendations[0])
			}
		})
	}
}

func TestAssessHealthRisksChestCT(t *testing.T) {
	tests := []struct {
		name       string
		age        int
		smoking    string
		lungFamily bool
		wantReason string
	}{
		{name: "current smoker", age: 30, smoking: models.SmokingCurrent, wantReason: "Fumantes têm risco aumentado de câncer de pulmão"},
		{name: "former smoker at fifty", age: 50, smoking: models.SmokingFormer, wantReason: "Ex-fumantes devem continuar rastreamento"},
		{name: "family history only", age: 30, smoking: models.SmokingNever, lungFamily: true, wantReason: "Ex-fumantes devem continuar rastreamento"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := profileAged(tt.age)
			profile.SmokingStatus = tt.smoking
			profile.FamilyHistory.LungCancer = tt.lungFamily

			recommendation, ok := findRecommendation(AssessHealthRisks(profile, riskNow), RecommendationChestCT)
			if !ok {
				t.Fatal("expected chest CT recommendation")
			}
			if recommendation.Reason != tt.wantReason || recommendation.Priority != RecommendationPriorityHigh {
				t.Fatalf("unexpected chest CT: %+v", recommendation)
			}
			if recommendation.StartAge == nil || *recommendation.StartAge != 50 {
				t.Fatalf("expected start age 50, got %v", recommendation.StartAge)
			}
		})
	}

	formerYoung := profileAged(49)
	formerYoung.SmokingStatus = models.SmokingFormer
	if _, ok := findRecommendation(AssessHealthRisks(formerYoung, riskNow), RecommendationChestCT); ok {
		t.Fatal("expected no chest CT for a 49-year-old former smoker")
	}
}

func TestAssessHealthRisksCardiovascularPriority(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.HealthProfile)
		present bool
		want    RecommendationPriority
	}{
		{name: "young and healthy", mutate: func(*models.HealthProfile) {}, present: false},
		{name: "obesity only", mutate: func(p *models.HealthProfile) { p.HasObesity = true }, present: true, want: RecommendationPriorityMedium},
		{name: "hypertension only", mutate: func(p *models.HealthProfile) { p.HasHypertension = true }, present: true, want: RecommendationPriorityMedium},
		{
			name: "hypertension and diabetes",
			mutate: func(p *models.HealthProfile) {
				p.HasHypertension = true
				p.HasDiabetes = true
			},
			present: true,
			want:    RecommendationPriorityHigh,
		},
		{name: "heart disease", mutate: func(p *models.HealthProfile) { p.HasHeartDisease = true }, present: true, want: RecommendationPriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := profileAged(30)
			tt.mutate(&profile)

			recommendation, ok := findRecommendation(AssessHealthRisks(profile, riskNow), RecommendationCardiovascular)
			if ok != tt.present {
				t.Fatalf("cardiovascular present = %v, want %v", ok, tt.present)
			}
			if ok && recommendation.Priority != tt.want {
				t.Fatalf("cardiovascular priority = %s, want %s", recommendation.Priority, tt.want)
			}
		})
	}
}

func TestAssessHealthRisksDiabetesAddsHbA1c(t *testing.T) {
	profile := profileAged(25)
	profile.HasDiabetes = true

	recommendation, ok := findRecommendation(AssessHealthRisks(profile, riskNow), RecommendationHbA1c)
	if !ok {
		t.Fatal("expected HbA1c recommendation")
	}
	if recommendation.Priority != RecommendationPriorityHigh || recommendation.Frequency != "A cada 3 meses" {
		t.Fatalf("unexpected HbA1c recommendation: %+v", recommendation)
	}
}

func TestAssessHealthRisksFamilyHistoryLowersStartAge(t *testing.T) {
	profile := profileAged(30)
	profile.FamilyHistory = models.FamilyHistory{ColonCancer: true, ProstateCancer: true, SkinCancer: true}

	recommendations := AssessHealthRisks(profile, riskNow)

	wantStartAges := map[string]int{
		RecommendationColonoscopy: 40,
		RecommendationProstate:    45,
	}
	for key, want := range wantStartAges {
		recommendation, ok := findRecommendation(recommendations, key)
		if !ok {
			t.Fatalf("expected %s recommendation", key)
		}
		if recommendation.Priority != RecommendationPriorityHigh {
			t.Fatalf("expected %s to be high priority, got %s", key, recommendation.Priority)
		}
		if recommendation.StartAge == nil || *recommendation.StartAge != want {
			t.Fatalf("expected %s start age %d, got %v", key, want, recommendation.StartAge)
		}
	}

	dermatology, ok := findRecommendation(recommendations, RecommendationDermatology)
	if !ok || dermatology.Priority != RecommendationPriorityHigh || dermatology.StartAge != nil {
		t.Fatalf("unexpected dermatology recommendation: %+v", dermatology)
	}
}

func TestAssessHealthRisksProstateIgnoresRecordedSex(t *testing.T) {
	profile := profileAged(55)

	if _, ok := findRecommendation(AssessHealthRisks(profile, riskNow), RecommendationProstate); !ok {
		t.Fatal("expected prostate screening from age 50")
	}
}

func TestAssessHealthRisksBoneDensityFromSixtyFive(t *testing.T) {
	if _, ok := findRecommendation(AssessHealthRisks(profileAged(64), riskNow), RecommendationBoneDensity); ok {
		t.Fatal("expected no bone density before 65")
	}

	recommendation, ok := findRecommendation(AssessHealthRisks(profileAged(65), riskNow), RecommendationBoneDensity)
	if !ok {
		t.Fatal("expected bone density at 65")
	}
	if recommendation.Priority != RecommendationPriorityMedium || recommendation.StartAge == nil || *recommendation.StartAge != 65 {
		t.Fatalf("unexpected bone density recommendation: %+v", recommendation)
	}
}

// Every combination of flags at a few ages must be sorted high-first and
// carry exactly one blood panel.
func TestAssessHealthRisksOrderingAcrossProfiles(t *testing.T) {
	ages := []int{0, 39, 40, 45, 50, 64, 65, 80}
	smoking := []string{models.SmokingNever, models.SmokingFormer, models.SmokingCurrent}

	for _, age := range ages {
		for _, status := range smoking {
			for mask := 0; mask < 1<<9; mask++ {
				profile := profileAged(age)
				profile.SmokingStatus = status
				profile.HasDiabetes = mask&1 != 0
				profile.HasHypertension = mask&2 != 0
				profile.HasHeartDisease = mask&4 != 0
				profile.HasObesity = mask&8 != 0
				profile.FamilyHistory.BreastCancer = mask&16 != 0
				profile.FamilyHistory.ColonCancer = mask&32 != 0
				profile.FamilyHistory.ProstateCancer = mask&64 != 0
				profile.FamilyHistory.LungCancer = mask&128 != 0
				profile.FamilyHistory.SkinCancer = mask&256 != 0

				recommendations := AssessHealthRisks(profile, riskNow)

				bloodPanels := 0
				for index, recommendation := range recommendations {
					if recommendation.Key == RecommendationBloodPanel {
						bloodPanels++
					}
					if index > 0 && recommendations[index-1].Priority > recommendation.Priority {
						t.Fatalf("age=%d smoking=%s mask=%d: %s precedes %s", age, status, mask, recommendations[index-1].Key, recommendation.Key)
					}
				}
				if bloodPanels != 1 {
					t.Fatalf("age=%d smoking=%s mask=%d: expected one blood panel, got %d", age, status, mask, bloodPanels)
				}

				_, hasBoneDensity := findRecommendation(recommendations, RecommendationBoneDensity)
				if hasBoneDensity != (age >= 65) {
					t.Fatalf("age=%d: bone density present = %v", age, hasBoneDensity)
				}
			}
		}
	}
}

func TestExamRecommendationJSONUsesPriorityNames(t *testing.T) {
	raw, err := json.Marshal(ExamRecommendation{Key: RecommendationHbA1c, Priority: RecommendationPriorityHigh})
	if err != nil {
		t.Fatalf("marshal recommendation: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode recommendation: %v", err)
	}
	if decoded["priority"] != "high" {
		t.Fatalf("expected priority=high, got %v", decoded["priority"])
	}
	if _, ok := decoded["start_age"]; ok {
		t.Fatal("expected start_age to be omitted when unset")
	}

	var priority RecommendationPriority
	if err := priority.UnmarshalText([]byte("LOW")); err != nil || priority != RecommendationPriorityLow {
		t.Fatalf("UnmarshalText() = %v, %v", priority, err)
	}
	if err := priority.UnmarshalText([]byte("critical")); err == nil {
		t.Fatal("expected unknown priority to fail")
	}
}

func TestTruncateRecommendations(t *testing.T) {
	recommendations := AssessHealthRisks(profileAged(66), riskNow)

	shown, omitted := TruncateRecommendations(recommendations, 5)
	if len(shown) != 5 || omitted != len(recommendations)-5 {
		t.Fatalf("expected 5 shown and %d omitted, got %d and %d", len(recommendations)-5, len(shown), omitted)
	}

	all, omitted := TruncateRecommendations(recommendations, 0)
	if len(all) != len(recommendations) || omitted != 0 {
		t.Fatalf("expected limit 0 to keep everything, got %d omitted=%d", len(all), omitted)
	}
}
