package rating

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LabelScorer scores catalog label documents across seven categories. Each
// category starts from a fixed baseline and is adjusted by independent
// heuristic rules keyed on document fields; the result is clamped to the
// scale.
type LabelScorer struct{}

// NewLabelScorer creates a label document scorer
func NewLabelScorer() *LabelScorer {
	return &LabelScorer{}
}

// labelDocument is the subset of a catalog label document the heuristics
// read. Quantity values stay untyped because upstream rows carry anything
// from numbers to free text.
type labelDocument struct {
	FullName  string `json:"fullName"`
	BrandName string `json:"brandName"`
	OffMarket bool   `json:"offMarket"`
	Contacts  []struct {
		ContactDetails struct {
			WebAddress string `json:"webAddress"`
		} `json:"contactDetails"`
	} `json:"contacts"`
	Statements []struct {
		Notes string `json:"notes"`
	} `json:"statements"`
	IngredientRows []struct {
		Name     string `json:"name"`
		Quantity []struct {
			Quantity interface{} `json:"quantity"`
		} `json:"quantity"`
	} `json:"ingredientRows"`
	OtherIngredients struct {
		Ingredients []struct {
			Name string `json:"name"`
		} `json:"ingredients"`
	} `json:"otheringredients"`
}

var fillerKeywords = []string{
	"stearate",
	"cellulose",
	"silicon dioxide",
	"magnesium stearate",
	"dicalcium phosphate",
}

const labelConfidence = 0.8

// ScoreDocument computes the seven category scores for a label document.
// A document that does not parse yields baseline scores with low confidence.
func (s *LabelScorer) ScoreDocument(doc []byte) []CategoryResult {
	var label labelDocument
	if err := json.Unmarshal(doc, &label); err != nil {
		return baselineCategories()
	}

	var statementParts []string
	for _, st := range label.Statements {
		statementParts = append(statementParts, st.Notes)
	}
	statementsText := strings.ToLower(strings.Join(statementParts, " "))

	qtyPresent, qtyUnknown := 0, 0
	for _, row := range label.IngredientRows {
		for _, q := range row.Quantity {
			if num, ok := q.Quantity.(float64); ok && num > 0 {
				qtyPresent++
			} else {
				qtyUnknown++
			}
		}
	}

	cats := make([]CategoryResult, 0, 7)

	// Purity: manufacturer contact, explicit exclusion statements, market status
	purity := 6.0
	if len(label.Contacts) > 0 {
		purity += 1.0
	}
	if strings.Contains(statementsText, "does not contain") || strings.Contains(statementsText, "no artificial") {
		purity += 1.5
	}
	if label.OffMarket {
		purity -= 2.0
	}
	cats = append(cats, result("Purity", purity,
		"Purity indicates third-party testing and absence of contaminants."))

	// Potency: explicit quantities in ingredient rows
	potency := 6.0
	if qtyPresent > 0 {
		bonus := float64(qtyPresent) * 0.7
		if bonus > 3.0 {
			bonus = 3.0
		}
		potency += bonus
	}
	if qtyUnknown > qtyPresent {
		potency -= 1.5
	}
	cats = append(cats, result("Potency", potency,
		"Potency looks for explicit ingredient amounts per serving."))

	// Additives: filler keywords among other ingredients, proprietary blends
	additives := 6.0
	fillerHits := 0
	for _, oi := range label.OtherIngredients.Ingredients {
		name := strings.ToLower(oi.Name)
		for _, fk := range fillerKeywords {
			if strings.Contains(name, fk) {
				fillerHits++
			}
		}
	}
	if fillerHits > 3 {
		fillerHits = 3
	}
	additives -= 1.0 * float64(fillerHits)
	for _, row := range label.IngredientRows {
		if strings.Contains(strings.ToLower(row.Name), "proprietary") {
			additives -= 1.5
			break
		}
	}
	cats = append(cats, result("Additives", additives,
		"Additives looks at fillers, excipients and proprietary blends."))

	// Safety: off-market flag, precautionary statements
	safety := 6.5
	if label.OffMarket {
		safety -= 3.0
	}
	if strings.Contains(statementsText, "not for use by pregnant") ||
		strings.Contains(statementsText, "keep out of reach of children") {
		safety -= 0.5
	}
	cats = append(cats, result("Safety", safety,
		"Safety considers recalls/off-market flags and explicit precautionary statements."))

	// Evidence: clinical claims against concrete data
	evidence := 6.0
	if strings.Contains(statementsText, "clinically") {
		evidence += 1.5
	}
	if strings.Contains(statementsText, "patent") {
		evidence += 0.6
	}
	if qtyPresent == 0 && !strings.Contains(statementsText, "clinically") {
		evidence -= 1.0
	}
	cats = append(cats, result("Evidence", evidence,
		"Evidence checks for clinical validation claims and concrete data."))

	// Brand: manufacturer presence, contact info, market status
	brand := 6.0
	if label.BrandName != "" {
		brand += 1.0
	}
	for _, c := range label.Contacts {
		if c.ContactDetails.WebAddress != "" {
			brand += 1.0
			break
		}
	}
	if label.OffMarket {
		brand -= 2.0
	}
	cats = append(cats, result("Brand", brand,
		"Brand looks at manufacturer presence, contact info, and off-market status."))

	// Environmental: sourcing and GMO/dairy claims
	env := 6.0
	if strings.Contains(statementsText, "manufactured in") {
		env += 0.5
	}
	if strings.Contains(statementsText, "no genetically modified") ||
		strings.Contains(statementsText, "no gmo") ||
		strings.Contains(statementsText, "dairy free") {
		env += 0.7
	}
	if strings.Contains(statementsText, "manufactured in canada") {
		env += 0.2
	}
	cats = append(cats, result("Environmental", env,
		"Environmental depends on claims like 'organic', 'no GMO', and manufacturing/sourcing statements."))

	return cats
}

func result(name string, score float64, justification string) CategoryResult {
	score = clamp(round2(score))
	return CategoryResult{
		Name:          name,
		Score:         score,
		Label:         ScoreToLabel(score),
		Confidence:    labelConfidence,
		Justification: justification,
	}
}

func baselineCategories() []CategoryResult {
	names := []string{"Purity", "Potency", "Additives", "Safety", "Evidence", "Brand", "Environmental"}
	cats := make([]CategoryResult, 0, len(names))
	for _, name := range names {
		cats = append(cats, CategoryResult{
			Name:          name,
			Score:         ScaleMax / 2,
			Label:         ScoreToLabel(ScaleMax / 2),
			Confidence:    0.2,
			Justification: fmt.Sprintf("%s could not be assessed: label document is malformed.", name),
		})
	}
	return cats
}
