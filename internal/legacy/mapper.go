// Package legacy converts declarations captured by the previous generation
// of the service, both the 2019 web form and the solen survey exports, into
// the canonical document shape.
package legacy

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	dErrors "parite/pkg/domain-errors"

	"parite/internal/domain"
)

// renames maps legacy keys to their canonical names, applied to every
// sub-document.
var renames = map[string]string{
	"motifNonCalculable":   "non_calculable",
	"noteFinale":           "note",
	"noteIndex":            "index",
	"resultatFinal":        "résultat",
	"sexeSurRepresente":    "population_favorable",
	"dateConsultationCSE":  "date_consultation_cse",
	"totalPoint":           "points",
	"totalPointCalculable": "points_calculables",
	"nombreSalariesTotal":  "total",
	"codeNaf":              "code_naf",
	"codePostal":           "code_postal",
	"nomEntreprise":        "raison_sociale",
	"tel":                  "téléphone",
	"prenom":               "prénom",
	"region":               "région",
	"departement":          "département",
}

// denyList holds legacy bookkeeping keys with no canonical counterpart.
var denyList = []string{
	"autre",
	"coef",
	"csp",
	"coefficient",
	"coefficientEffectifFormValidated",
	"coefficientGroupFormValidated",
	"formValidated",
	"nombreCoefficients",
	"nonCalculable",
	"motifNonCalculablePrecision",
	"presenceAugmentation",
	"presencePromotion",
	"presenceAugmentationPromotion",
	"presenceCongeMat",
	"tauxAugmentation",
	"tauxPromotion",
	"remunerationAnnuelle",
	"nombreSalaries",
	"nombreEntreprises",
	"acceptationCGU",
	"nomUES",
	"structure",
	"nombreSalarieesAugmentees",
	"nombreSalarieesPeriodeAugmentation",
	"nombreSalariesFemmes",
	"nombreSalariesHommes",
	"nombreAugmentationPromotionFemmes",
	"nombreAugmentationPromotionHommes",
	"periodeDeclaration",
	"dateDeclaration",
	"datePublication",
	"lienPublication",
	"mesuresCorrection",
}

// nonCalculableCodes remaps motif codes that were renamed between the two
// generations of the form.
var nonCalculableCodes = map[string]string{
	"egvinf40pcet":  "egvi40pcet",
	"absretcm":      "absrcm",
	"absaugpdtcong": "absaugpdtcm",
}

var urlLike = regexp.MustCompile(`(?i)^(https?://|www\.)`)

var paris *time.Location

func init() {
	var err error
	paris, err = time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(fmt.Sprintf("load Europe/Paris tzdata: %v", err))
	}
}

// IsLegacy reports whether raw uses the previous generation document shape.
func IsLegacy(raw map[string]any) bool {
	_, hasInformations := raw["informations"]
	_, hasEntreprise := raw["informationsEntreprise"]
	return hasInformations || hasEntreprise
}

// FromLegacy converts a legacy document into the canonical shape. The input
// map is not modified.
func FromLegacy(raw map[string]any) (domain.Data, error) {
	src := domain.Data(raw).Clone()
	source, _ := src["source"].(string)
	solen := strings.HasPrefix(source, "solen")

	out := domain.Data{}
	if id := src["id"]; id != nil {
		out["id"] = id
	}
	if source != "" {
		out["source"] = source
	}

	informations := subMap(src, "informations")

	declarant := subMap(src, "informationsDeclarant")
	clean(declarant)
	out["déclarant"] = declarant

	entreprise := subMap(src, "informationsEntreprise")
	if rawUES, ok := entreprise["entreprisesUES"].([]any); ok {
		name, _ := entreprise["nomUES"].(string)
		members := make([]any, 0, len(rawUES))
		for _, e := range rawUES {
			member, ok := e.(map[string]any)
			if !ok {
				continue
			}
			members = append(members, map[string]any{
				"raison_sociale": member["nom"],
				"siren":          member["siren"],
			})
		}
		entreprise["ues"] = map[string]any{"raison_sociale": name, "entreprises": members}
		delete(entreprise, "entreprisesUES")
	}
	clean(entreprise)
	if region, ok := entreprise["région"].(string); ok {
		entreprise["région"] = RegionCode(region)
	}
	if departement, ok := entreprise["département"].(string); ok {
		entreprise["département"] = DepartementCode(departement)
	}
	if naf, ok := entreprise["code_naf"].(string); ok {
		// solen exports append the label after the code
		entreprise["code_naf"], _, _ = strings.Cut(naf, " - ")
	}
	out["entreprise"] = entreprise

	declaration := subMap(src, "declaration")
	if year := informations["anneeDeclaration"]; year != nil {
		declaration["année_indicateurs"] = year
	}
	if debut, fin := informations["debutPeriodeReference"], informations["finPeriodeReference"]; debut != nil && fin != nil {
		start, err := parseDate(debut)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse debutPeriodeReference")
		}
		end, err := parseDate(fin)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse finPeriodeReference")
		}
		declaration["période_référence"] = []any{start, end}
	}
	if v, ok := declaration["mesuresCorrection"].(string); ok && v != "" {
		declaration["mesures_correctives"] = v
	}
	if v, ok := declaration["dateDeclaration"].(string); ok && v != "" {
		date, err := parseDateTime(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse dateDeclaration")
		}
		declaration["date"] = date
	}
	publication := map[string]any{}
	if v, ok := declaration["datePublication"].(string); ok && v != "" {
		date, err := parseDate(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse datePublication")
		}
		publication["date"] = date
	}
	if v, ok := declaration["lienPublication"].(string); ok && v != "" {
		if urlLike.MatchString(v) {
			publication["url"] = v
		} else {
			publication["modalités"] = v
		}
	}
	if len(publication) > 0 {
		declaration["publication"] = publication
	}
	clean(declaration)
	out["déclaration"] = declaration

	effectif := subMap(src, "effectif")
	if effectif["nombreSalariesTotal"] == nil {
		total := 0.0
		if categories, ok := effectif["nombreSalaries"].([]any); ok {
			for _, c := range categories {
				category, _ := c.(map[string]any)
				brackets, _ := category["tranchesAges"].([]any)
				for _, b := range brackets {
					bracket, _ := b.(map[string]any)
					total += floatOf(bracket["nombreSalariesFemmes"])
					total += floatOf(bracket["nombreSalariesHommes"])
				}
			}
		}
		effectif["total"] = total
	}
	clean(effectif)
	if tranche, ok := informations["trancheEffectifs"].(string); ok {
		effectif["tranche"] = trancheCode(tranche, floatOf(effectif["total"]))
	}
	entreprise["effectif"] = effectif

	indicateurs := map[string]any{
		"rémunérations":               remunerations(subMap(src, "indicateurUn"), solen),
		"augmentations":               flatIndicator(subMap(src, "indicateurDeux"), "tauxAugmentation", "ecartTauxAugmentation"),
		"augmentations_et_promotions": augmentationsPromotions(subMap(src, "indicateurDeuxTrois")),
		"promotions":                  flatIndicator(subMap(src, "indicateurTrois"), "tauxPromotion", "ecartTauxPromotion"),
		"congés_maternité":            plainIndicator(subMap(src, "indicateurQuatre")),
		"hautes_rémunérations":        plainIndicator(subMap(src, "indicateurCinq")),
	}
	out["indicateurs"] = indicateurs

	scrubBalanced(indicateurs)
	tranche, _ := effectif["tranche"].(string)
	applyTranche(indicateurs, tranche)
	reconcileMeasures(declaration)
	return out, nil
}

// remunerations rebuilds the per-category pay gap table. solen stores the
// gaps as percentages while the 2019 form stored them as ratios.
func remunerations(indicator map[string]any, solen bool) map[string]any {
	if reduced, done := nonCalculable(indicator); done {
		return reduced
	}
	mode := "csp"
	switch {
	case truthy(indicator["autre"]):
		mode = "niveau_autre"
	case truthy(indicator["coef"]):
		mode = "niveau_branche"
	case truthy(indicator["csp"]):
		mode = "csp"
	case nonEmptySlice(indicator["coefficient"]):
		mode = "niveau_branche"
	}
	key := "remunerationAnnuelle"
	if mode != "csp" {
		key = "coefficient"
	}
	categories := []any{}
	if rows, ok := indicator[key].([]any); ok {
		for idx, r := range rows {
			row, _ := r.(map[string]any)
			brackets, ok := row["tranchesAges"].([]any)
			if !ok {
				continue
			}
			nom, _ := row["nom"].(string)
			if nom == "" {
				nom = fmt.Sprintf("tranche %d", idx)
			}
			labels := []string{":29", "30:39", "40:49", "50:"}
			tranches := map[string]any{}
			for i, label := range labels {
				if i >= len(brackets) {
					break
				}
				bracket, _ := brackets[i].(map[string]any)
				if gap := payGap(bracket, solen); gap != nil {
					tranches[label] = gap
				}
			}
			categories = append(categories, map[string]any{"nom": nom, "tranches": tranches})
		}
	}
	clean(indicator)
	indicator["mode"] = mode
	indicator["catégories"] = categories
	return indicator
}

// payGap extracts the gap of one age bracket, synthesizing it from raw
// female and male pay when the form only captured those.
func payGap(bracket map[string]any, solen bool) any {
	if gap, ok := bracket["ecartTauxRemuneration"].(float64); ok {
		if !solen {
			gap *= 100
		}
		return gap
	}
	femmes, okF := bracket["remunerationAnnuelleBrutFemmes"].(float64)
	hommes, okH := bracket["remunerationAnnuelleBrutHommes"].(float64)
	if okF && okH && hommes != 0 {
		return (1 - femmes/hommes) * 100
	}
	return nil
}

// flatIndicator rebuilds augmentations or promotions, whose catégories is a
// flat list of one ratio per socio-professional category.
func flatIndicator(indicator map[string]any, rowsKey, gapKey string) map[string]any {
	if reduced, done := nonCalculable(indicator); done {
		return reduced
	}
	if rows, ok := indicator[rowsKey].([]any); ok {
		categories := make([]any, 0, len(rows))
		for _, r := range rows {
			row, _ := r.(map[string]any)
			categories = append(categories, row[gapKey])
		}
		indicator["catégories"] = categories
	}
	clean(indicator)
	return indicator
}

// augmentationsPromotions rebuilds the combined indicator of 50 to 250
// employee companies, which carries two measures of the same gap.
func augmentationsPromotions(indicator map[string]any) map[string]any {
	if reduced, done := nonCalculable(indicator); done {
		return reduced
	}
	combined := map[string]string{
		"resultatFinalEcart":          "résultat",
		"resultatFinalNombreSalaries": "résultat_nombre_salariés",
		"noteEcart":                   "note_en_pourcentage",
		"noteNombreSalaries":          "note_nombre_salariés",
	}
	for old, canonical := range combined {
		if v := indicator[old]; v != nil {
			indicator[canonical] = v
		}
		delete(indicator, old)
	}
	clean(indicator)
	return indicator
}

func plainIndicator(indicator map[string]any) map[string]any {
	if reduced, done := nonCalculable(indicator); done {
		return reduced
	}
	clean(indicator)
	return indicator
}

// nonCalculable reduces an indicator to its sole non_calculable marker when
// one is set, remapping renamed motif codes.
func nonCalculable(indicator map[string]any) (map[string]any, bool) {
	motif, _ := indicator["motifNonCalculable"].(string)
	if motif == "" {
		return indicator, false
	}
	if canonical, ok := nonCalculableCodes[motif]; ok {
		motif = canonical
	}
	return map[string]any{"non_calculable": motif}, true
}

// scrubBalanced drops population_favorable wherever the measured gap shows
// no imbalance, matching what the declaration form enforces.
func scrubBalanced(indicateurs map[string]any) {
	for _, name := range []string{"rémunérations", "augmentations", "promotions"} {
		indicator, _ := indicateurs[name].(map[string]any)
		if indicator != nil && floatOf(indicator["résultat"]) == 0 {
			delete(indicator, "population_favorable")
		}
	}
	if hautes, _ := indicateurs["hautes_rémunérations"].(map[string]any); hautes != nil {
		if hautes["résultat"] != nil && floatOf(hautes["résultat"]) == 5 {
			delete(hautes, "population_favorable")
		}
	}
	if combined, _ := indicateurs["augmentations_et_promotions"].(map[string]any); combined != nil {
		if floatOf(combined["résultat"]) == 0 && floatOf(combined["résultat_nombre_salariés"]) == 0 {
			delete(combined, "population_favorable")
		}
	}
}

// applyTranche empties the indicators that do not apply to the company size.
func applyTranche(indicateurs map[string]any, tranche string) {
	if tranche == domain.Tranche50to250 {
		indicateurs["augmentations"] = map[string]any{}
		indicateurs["promotions"] = map[string]any{}
		return
	}
	indicateurs["augmentations_et_promotions"] = map[string]any{}
}

// reconcileMeasures aligns mesures_correctives with the index.
func reconcileMeasures(declaration map[string]any) {
	index, ok := declaration["index"].(float64)
	if !ok {
		if i, isInt := declaration["index"].(int); isInt {
			index, ok = float64(i), true
		}
	}
	if !ok {
		return
	}
	if index >= 75 {
		delete(declaration, "mesures_correctives")
		return
	}
	if index > 0 && declaration["mesures_correctives"] == nil {
		declaration["mesures_correctives"] = "me"
	}
}

func parseDate(v any) (string, error) {
	s, _ := v.(string)
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return "", fmt.Errorf("parse legacy date %q: %w", s, err)
	}
	return t.Format("2006-01-02"), nil
}

// parseDateTime interprets a legacy timestamp as Paris local time and
// renders it in UTC.
func parseDateTime(s string) (string, error) {
	t, err := time.ParseInLocation("02/01/2006 15:04", s, paris)
	if err != nil {
		return "", fmt.Errorf("parse legacy datetime %q: %w", s, err)
	}
	return t.UTC().Format("2006-01-02T15:04:05+00:00"), nil
}

func trancheCode(label string, total float64) string {
	switch label {
	case "50 à 250":
		return domain.Tranche50to250
	case "251 à 999":
		return domain.Tranche251to999
	case "1000 et plus":
		return domain.Tranche1000Plus
	case "Plus de 250":
		if total >= 1000 {
			return domain.Tranche1000Plus
		}
		return domain.Tranche251to999
	}
	return label
}

// clean renames known keys, drops deny-listed ones and removes empty values.
func clean(m map[string]any) {
	for old, canonical := range renames {
		value, ok := m[old]
		if !ok {
			continue
		}
		delete(m, old)
		if value == nil || value == "" {
			continue
		}
		m[canonical] = value
	}
	for _, key := range denyList {
		delete(m, key)
	}
	for key, value := range m {
		if value == nil || value == "" {
			delete(m, key)
		}
	}
}

func subMap(src domain.Data, key string) map[string]any {
	if m, ok := src[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func nonEmptySlice(v any) bool {
	s, ok := v.([]any)
	return ok && len(s) > 0
}
