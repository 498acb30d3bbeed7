package guidelines

import _ "embed"

// Exams is the default preventive-exam guideline table.
//
//go:embed exams.yaml
var Exams []byte
