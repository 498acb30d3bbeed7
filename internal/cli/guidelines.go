package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/terraincognita07/bemcuidar/internal/services"
)

// RunGuidelinesCommand validates a guideline file and prints the table. An
// empty path prints the built-in table.
func RunGuidelinesCommand(path string, out io.Writer) error {
	table := services.DefaultExamGuidelines()
	if strings.TrimSpace(path) != "" {
		loaded, err := services.LoadExamGuidelinesFile(path)
		if err != nil {
			return err
		}
		table = loaded
	}

	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "KEY\tNAME\tFREQUENCY\tMIN AGE\tURGENT AFTER")
	for _, guideline := range table.All() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d months\n",
			guideline.Key,
			guideline.Name,
			services.FormatExamFrequency(guideline.FrequencyMonths),
			guideline.MinAge,
			guideline.UrgencyThresholdMonths,
		)
	}
	return writer.Flush()
}
