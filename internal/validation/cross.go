// Package validation enforces the semantic invariants that span multiple
// fields of a declaration, beyond what the structural schema can express.
package validation

import (
	"fmt"
	"strings"

	dErrors "parite/pkg/domain-errors"

	"parite/internal/domain"
	"parite/internal/siren"
)

// requiredWhenValidated lists the fields a validated declaration must carry.
var requiredWhenValidated = []string{
	"entreprise.région",
	"entreprise.département",
	"entreprise.adresse",
	"entreprise.commune",
	"entreprise.code_postal",
	"entreprise.code_naf",
	"déclarant.prénom",
	"déclarant.nom",
	"déclarant.téléphone",
}

// simpleIndicators are the indicators carrying a single résultat and an
// optional population_favorable.
var simpleIndicators = []string{"rémunérations", "augmentations", "promotions"}

// CrossValidate checks the inter-field invariants of a declaration. Each
// violated rule yields its own message; the first violation found wins.
func CrossValidate(data domain.Data) error {
	if err := validatedFields(data); err != nil {
		return err
	}
	if err := geography(data); err != nil {
		return err
	}
	if err := correctiveMeasures(data); err != nil {
		return err
	}
	if err := trancheIndicators(data); err != nil {
		return err
	}
	if err := indicators(data); err != nil {
		return err
	}
	if err := uesSirens(data); err != nil {
		return err
	}
	return nil
}

func validatedFields(data domain.Data) error {
	if !data.Validated() {
		return nil
	}
	for _, path := range requiredWhenValidated {
		if data.Path(path) == nil {
			return dErrors.Newf(dErrors.CodeValidation, "le champ %s doit être renseigné pour une déclaration validée", path)
		}
	}
	return nil
}

func geography(data domain.Data) error {
	region := data.PathString("entreprise.région")
	departement := data.PathString("entreprise.département")
	if region != "" && departement != "" {
		if !contains(domain.RegionsToDepartements[region], departement) {
			return dErrors.Newf(dErrors.CodeValidation, "le département %s n'appartient pas à la région %s", departement, region)
		}
	}
	if codePostal := data.PathString("entreprise.code_postal"); codePostal != "" && departement != "" {
		prefix := departement
		// Corse shares the 20 postal prefix across both departments.
		if prefix == "2A" || prefix == "2B" {
			prefix = "20"
		}
		if !strings.HasPrefix(codePostal, prefix) {
			return dErrors.Newf(dErrors.CodeValidation, "le code postal %s ne correspond pas au département %s", codePostal, departement)
		}
	}
	return nil
}

func correctiveMeasures(data domain.Data) error {
	index, hasIndex := asInt(data.Path("déclaration.index"))
	measures := data.Path("déclaration.mesures_correctives")
	switch {
	case !hasIndex && measures != nil:
		return dErrors.New(dErrors.CodeValidation, "des mesures correctives sont définies alors que l'index n'est pas calculable")
	case hasIndex && index >= 75 && measures != nil:
		return dErrors.New(dErrors.CodeValidation, "des mesures correctives sont définies alors que l'index est supérieur ou égal à 75")
	case hasIndex && index > 0 && index < 75 && measures == nil:
		return dErrors.New(dErrors.CodeValidation, "des mesures correctives sont requises lorsque l'index est inférieur à 75")
	}
	return nil
}

func trancheIndicators(data domain.Data) error {
	if data.Path("indicateurs") == nil {
		return nil
	}
	if data.PathString("entreprise.effectif.tranche") == domain.Tranche50to250 {
		if data.Path("indicateurs.augmentations") != nil {
			return dErrors.New(dErrors.CodeValidation, "l'indicateur augmentations ne concerne pas les entreprises de 50 à 250 salariés")
		}
		if data.Path("indicateurs.promotions") != nil {
			return dErrors.New(dErrors.CodeValidation, "l'indicateur promotions ne concerne pas les entreprises de 50 à 250 salariés")
		}
		return nil
	}
	if data.Path("indicateurs.augmentations_et_promotions") != nil {
		return dErrors.New(dErrors.CodeValidation, "l'indicateur augmentations_et_promotions ne concerne que les entreprises de 50 à 250 salariés")
	}
	return nil
}

func indicators(data domain.Data) error {
	raw := data.Path("indicateurs")
	if raw == nil {
		return nil
	}
	indicateurs, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	for name, value := range indicateurs {
		indicator, ok := value.(map[string]any)
		if !ok || len(indicator) == 0 {
			// legacy conversions keep indicators that do not apply to the
			// company size as empty objects
			continue
		}
		if indicator["non_calculable"] != nil {
			if len(indicator) > 1 {
				return dErrors.Newf(dErrors.CodeValidation, "l'indicateur %s non calculable ne doit contenir aucune autre donnée", name)
			}
			continue
		}
		if _, ok := indicator["résultat"]; !ok {
			return dErrors.Newf(dErrors.CodeValidation, "l'indicateur %s doit comporter un résultat", name)
		}
	}
	for _, name := range simpleIndicators {
		if err := balancedPopulation(data, name, fmt.Sprintf("indicateurs.%s.résultat", name)); err != nil {
			return err
		}
	}
	if err := remunerationsCSE(data); err != nil {
		return err
	}
	if data.Path("indicateurs.augmentations_et_promotions") != nil &&
		data.Path("indicateurs.augmentations_et_promotions.non_calculable") == nil {
		percent, _ := data.PathFloat("indicateurs.augmentations_et_promotions.résultat")
		absolute, _ := data.PathFloat("indicateurs.augmentations_et_promotions.résultat_nombre_salariés")
		if percent == 0 && absolute == 0 &&
			data.Path("indicateurs.augmentations_et_promotions.population_favorable") != nil {
			return dErrors.New(dErrors.CodeValidation, "l'indicateur augmentations_et_promotions à résultats nuls ne doit pas désigner de population favorable")
		}
	}
	if resultat, ok := data.PathFloat("indicateurs.hautes_rémunérations.résultat"); ok && resultat == 5 {
		if data.Path("indicateurs.hautes_rémunérations.population_favorable") != nil {
			return dErrors.New(dErrors.CodeValidation, "l'indicateur hautes_rémunérations à résultat 5 ne doit pas désigner de population favorable")
		}
	}
	return nil
}

func balancedPopulation(data domain.Data, name, resultPath string) error {
	if data.Path("indicateurs."+name) == nil || data.Path("indicateurs."+name+".non_calculable") != nil {
		return nil
	}
	resultat, ok := data.PathFloat(resultPath)
	if !ok || resultat != 0 {
		return nil
	}
	if data.Path("indicateurs."+name+".population_favorable") != nil {
		return dErrors.Newf(dErrors.CodeValidation, "l'indicateur %s à résultat nul ne doit pas désigner de population favorable", name)
	}
	return nil
}

func remunerationsCSE(data domain.Data) error {
	if data.Path("indicateurs.rémunérations") == nil ||
		data.Path("indicateurs.rémunérations.non_calculable") != nil {
		return nil
	}
	mode := data.PathString("indicateurs.rémunérations.mode")
	hasDate := data.Path("indicateurs.rémunérations.date_consultation_cse") != nil
	switch mode {
	case "niveau_autre", "niveau_branche":
		if !hasDate {
			return dErrors.Newf(dErrors.CodeValidation, "la date de consultation du CSE est requise pour le mode %s", mode)
		}
	case "csp":
		if hasDate {
			return dErrors.New(dErrors.CodeValidation, "la date de consultation du CSE ne concerne pas le mode csp")
		}
	}
	return nil
}

func uesSirens(data domain.Data) error {
	for _, s := range data.UESSirens() {
		if !siren.Valid(s) {
			return dErrors.Newf(dErrors.CodeValidation, "le siren %s d'une entreprise de l'UES est invalide", s)
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
