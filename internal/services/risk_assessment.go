package services

import (
	"sort"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

const (
	RecommendationMammography    = "mammography"
	RecommendationColonoscopy    = "colonoscopy"
	RecommendationCardiovascular = "cardiovascular"
	RecommendationHbA1c          = "hba1c"
	RecommendationChestCT        = "chestCT"
	RecommendationDermatology    = "dermatology"
	RecommendationProstate       = "prostate"
	RecommendationBoneDensity    = "boneDensity"
	RecommendationBloodPanel     = "bloodPanel"
)

type ExamRecommendation struct {
	Key       string                 `json:"key"`
	Exam      string                 `json:"exam"`
	Priority  RecommendationPriority `json:"priority"`
	Reason    string                 `json:"reason"`
	Frequency string                 `json:"frequency"`
	StartAge  *int                   `json:"start_age,omitempty"`
}

type riskRule func(age int, profile models.HealthProfile) (ExamRecommendation, bool)

// riskRules run in this order; the order only breaks priority ties.
var riskRules = []riskRule{
	mammographyRule,
	colonoscopyRule,
	cardiovascularRule,
	hba1cRule,
	chestCTRule,
	dermatologyRule,
	prostateRule,
	boneDensityRule,
	bloodPanelRule,
}

// AssessHealthRisks maps a health profile to preventive exam recommendations,
// highest priority first.
func AssessHealthRisks(profile models.HealthProfile, now time.Time) []ExamRecommendation {
	age := CompletedYears(profile.BirthDate, now)

	recommendations := make([]ExamRecommendation, 0, len(riskRules))
	for _, rule := range riskRules {
		if recommendation, ok := rule(age, profile); ok {
			recommendations = append(recommendations, recommendation)
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Priority < recommendations[j].Priority
	})
	return recommendations
}

func mammographyRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	familyHistory := profile.FamilyHistory.BreastCancer
	if age < 40 && !familyHistory {
		return ExamRecommendation{}, false
	}

	recommendation := ExamRecommendation{
		Key:       RecommendationMammography,
		Exam:      "Mamografia",
		Priority:  RecommendationPriorityMedium,
		Reason:    "Recomendado para mulheres a partir dos 40 anos",
		Frequency: "Anual",
		StartAge:  startAge(40),
	}
	if familyHistory {
		recommendation.Priority = RecommendationPriorityHigh
		recommendation.Reason = "Histórico familiar de câncer de mama aumenta o risco"
		recommendation.StartAge = startAge(35)
	}
	return recommendation, true
}

func colonoscopyRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	familyHistory := profile.FamilyHistory.ColonCancer
	if age < 45 && !familyHistory {
		return ExamRecommendation{}, false
	}

	recommendation := ExamRecommendation{
		Key:       RecommendationColonoscopy,
		Exam:      "Colonoscopia",
		Priority:  RecommendationPriorityMedium,
		Reason:    "Prevenção de câncer de intestino a partir dos 45 anos",
		Frequency: "A cada 5-10 anos",
		StartAge:  startAge(45),
	}
	if familyHistory {
		recommendation.Priority = RecommendationPriorityHigh
		recommendation.Reason = "Histórico familiar de câncer colorretal aumenta significativamente o risco"
		recommendation.StartAge = startAge(40)
	}
	return recommendation, true
}

func cardiovascularRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	if !profile.HasHypertension && !profile.HasDiabetes && !profile.HasHeartDisease && !profile.HasObesity && age < 40 {
		return ExamRecommendation{}, false
	}

	priority := RecommendationPriorityMedium
	if profile.HasHeartDisease || (profile.HasHypertension && profile.HasDiabetes) {
		priority = RecommendationPriorityHigh
	}
	return ExamRecommendation{
		Key:       RecommendationCardiovascular,
		Exam:      "Check-up Cardiovascular",
		Priority:  priority,
		Reason:    "Fatores de risco cardiovascular identificados",
		Frequency: "Anual",
	}, true
}

func hba1cRule(_ int, profile models.HealthProfile) (ExamRecommendation, bool) {
	if !profile.HasDiabetes {
		return ExamRecommendation{}, false
	}
	return ExamRecommendation{
		Key:       RecommendationHbA1c,
		Exam:      "Hemoglobina Glicada (HbA1c)",
		Priority:  RecommendationPriorityHigh,
		Reason:    "Essencial para controle do diabetes",
		Frequency: "A cada 3 meses",
	}, true
}

func chestCTRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	currentSmoker := profile.SmokingStatus == models.SmokingCurrent
	formerSmoker := profile.SmokingStatus == models.SmokingFormer && age >= 50
	if !currentSmoker && !formerSmoker && !profile.FamilyHistory.LungCancer {
		return ExamRecommendation{}, false
	}

	reason := "Ex-fumantes devem continuar rastreamento"
	if currentSmoker {
		reason = "Fumantes têm risco aumentado de câncer de pulmão"
	}
	return ExamRecommendation{
		Key:       RecommendationChestCT,
		Exam:      "Tomografia de Tórax",
		Priority:  RecommendationPriorityHigh,
		Reason:    reason,
		Frequency: "Anual",
		StartAge:  startAge(50),
	}, true
}

func dermatologyRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	familyHistory := profile.FamilyHistory.SkinCancer
	if age < 40 && !familyHistory {
		return ExamRecommendation{}, false
	}

	recommendation := ExamRecommendation{
		Key:       RecommendationDermatology,
		Exam:      "Exame Dermatológico",
		Priority:  RecommendationPriorityLow,
		Reason:    "Prevenção de câncer de pele",
		Frequency: "Anual",
	}
	if familyHistory {
		recommendation.Priority = RecommendationPriorityHigh
		recommendation.Reason = "Histórico familiar de câncer de pele requer acompanhamento"
	}
	return recommendation, true
}

// prostateRule does not look at the recorded sex.
func prostateRule(age int, profile models.HealthProfile) (ExamRecommendation, bool) {
	familyHistory := profile.FamilyHistory.ProstateCancer
	if age < 50 && !familyHistory {
		return ExamRecommendation{}, false
	}

	recommendation := ExamRecommendation{
		Key:       RecommendationProstate,
		Exam:      "PSA e Toque Retal",
		Priority:  RecommendationPriorityMedium,
		Reason:    "Rastreamento de câncer de próstata",
		Frequency: "Anual",
		StartAge:  startAge(50),
	}
	if familyHistory {
		recommendation.Priority = RecommendationPriorityHigh
		recommendation.Reason = "Histórico familiar aumenta risco de câncer de próstata"
		recommendation.StartAge = startAge(45)
	}
	return recommendation, true
}

func boneDensityRule(age int, _ models.HealthProfile) (ExamRecommendation, bool) {
	if age < 65 {
		return ExamRecommendation{}, false
	}
	return ExamRecommendation{
		Key:       RecommendationBoneDensity,
		Exam:      "Densitometria Óssea",
		Priority:  RecommendationPriorityMedium,
		Reason:    "Rastreamento de osteoporose",
		Frequency: "A cada 2 anos",
		StartAge:  startAge(65),
	}, true
}

func bloodPanelRule(_ int, _ models.HealthProfile) (ExamRecommendation, bool) {
	return ExamRecommendation{
		Key:       RecommendationBloodPanel,
		Exam:      "Exames de Sangue Completo",
		Priority:  RecommendationPriorityMedium,
		Reason:    "Check-up anual de saúde geral",
		Frequency: "Anual",
	}, true
}

func startAge(age int) *int {
	return &age
}

// TruncateRecommendations keeps the first limit items and reports how many were left out.
func TruncateRecommendations(recommendations []ExamRecommendation, limit int) ([]ExamRecommendation, int) {
	if limit <= 0 || len(recommendations) <= limit {
		return recommendations, 0
	}
	return recommendations[:limit], len(recommendations) - limit
}
