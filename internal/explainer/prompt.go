package explainer

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"text/template"
)

const promptTemplate = `You are a Data Scientist who understands how to interpret model results.

The task of the model:
'{{.TaskDescription}}'

You have a list of the features names with influences values of specific prediction and features descriptions:
{{.PredictionInfluences}}
The larger absolute influence value the more this feature influenced the specific prediction.
Carefully consider how features influenced the specific prediction.
Draw a conclusion in one or two sentences.

**Content Restrictions:**
1. **Provide the response in {{.AnswerLanguage}} language.**
2. **Omit features if they have little influence.**
3. **Do not mention influence values.**
4. **Do not respond with numbered list.**
5. **Do not start your response with regular phrases.**
6. **Do not include your own additional conclusions about model or task.**
7. **Important to include the ORIGINAL features names in parentheses when mentioning them.**`

var promptTmpl = template.Must(template.New("prompt").Parse(promptTemplate))

// promptData holds the variables available in the prompt template.
type promptData struct {
	TaskDescription      string
	PredictionInfluences string
	AnswerLanguage       string
}

func render(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// influenceLines writes one "- name = value - description" line per
// predictor, in predictor order. Every predictor must have a value.
func influenceLines(predictors []Predictor, values map[string]float64) string {
	var builder strings.Builder
	for _, p := range predictors {
		builder.WriteString("- ")
		builder.WriteString(p.Name)
		builder.WriteString(" = ")
		builder.WriteString(FormatInfluence(values[p.Name]))
		builder.WriteString(" - ")
		builder.WriteString(p.Description)
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatInfluence rounds v to 5 decimal places and prints the shortest
// representation of the result, e.g. 0.123456789 -> "0.12346", 0.42 -> "0.42".
// Output is always fixed notation: whole numbers print as "1", tiny values
// as "0.00001" and values that round to zero as "0".
func FormatInfluence(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 5, 64), 64)
	if rounded == 0 {
		rounded = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
