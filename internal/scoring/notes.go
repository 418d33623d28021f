// Package scoring computes the per-indicator notes and the composite index
// of a declaration. Notes come from piecewise step functions keyed by
// inclusive lower bounds; the 0.05 offsets in the tables encode the
// round-half-down-at-.05 regulatory policy and must not be normalized away.
package scoring

import (
	"math"
	"sort"
	"strconv"

	"parite/internal/domain"
	"parite/internal/schema"
)

// Step is one (inclusive lower bound, note) pair of a threshold table.
type Step struct {
	Bound float64
	Note  int
}

var RemunerationsThresholds = []Step{
	{0.00, 40},
	{0.05, 39},
	{1.05, 38},
	{2.05, 37},
	{3.05, 36},
	{4.05, 35},
	{5.05, 34},
	{6.05, 33},
	{7.05, 31},
	{8.05, 29},
	{9.05, 27},
	{10.05, 25},
	{11.05, 23},
	{12.05, 21},
	{13.05, 19},
	{14.05, 17},
	{15.05, 14},
	{16.05, 11},
	{17.05, 8},
	{18.05, 5},
	{19.05, 2},
	{20.05, 0},
}

var AugmentationsThresholds = []Step{
	{0.00, 20},
	{2.05, 10},
	{5.05, 5},
	{10.05, 0},
}

var AugmentationsPromotionsThresholds = []Step{
	{0.00, 35},
	{2.05, 25},
	{5.05, 15},
	{10.05, 0},
}

var PromotionsThresholds = []Step{
	{0.00, 15},
	{2.05, 10},
	{5.05, 5},
	{10.05, 0},
}

var HautesRemunerationsThresholds = []Step{
	{0, 0},
	{2, 5},
	{4, 10},
	{6, 0}, // any résultat above 5 scores 0
}

const (
	maxRemunerations            = 40
	maxAugmentations            = 20
	maxAugmentationsPromotions  = 35
	maxPromotions               = 15
	maxCongesMaternite          = 15
	maxHautesRemunerations      = 10
	minimumForIndex             = 75
)

// ComputeNote resolves a résultat against a threshold table: the note of the
// largest bound not exceeding the résultat rounded to 2 decimals. A nil or
// non-numeric résultat yields no note (non-calculable).
func ComputeNote(resultat any, table []Step) (int, bool) {
	f, ok := toFloat(resultat)
	if !ok {
		return 0, false
	}
	r := math.Round(f*100) / 100
	idx := sort.Search(len(table), func(i int) bool {
		return table[i].Bound > r
	})
	if idx == 0 {
		return table[0].Note, true
	}
	return table[idx-1].Note, true
}

// ComputeNotes scores the whole document in place: per-indicator notes, the
// inter-indicator correction of annexe 5.2, points, points_calculables and
// the composite index. Read-only fields are stripped first so notes from a
// previous run never feed back into this one.
func ComputeNotes(data domain.Data, def *schema.Definition) {
	schema.CleanReadOnly(data, def)

	if data.Path("indicateurs") == nil {
		return
	}
	points := 0
	maximum := 0

	// The reference population comes from rémunérations when its note shows
	// an actual gap; an indicator leaning the other way is compensated with
	// its maximum note.
	var populationFavorable string

	if data.Path("indicateurs.rémunérations.non_calculable") == nil {
		note, ok := ComputeNote(data.Path("indicateurs.rémunérations.résultat"), RemunerationsThresholds)
		if ok {
			if note != maxRemunerations {
				// note 40 would mean equality
				populationFavorable = data.PathString("indicateurs.rémunérations.population_favorable")
			}
			maximum += maxRemunerations
			data.SetPath("indicateurs.rémunérations.note", note)
			points += note
		}
	}

	if data.Path("indicateurs.augmentations.non_calculable") == nil {
		note, ok := ComputeNote(data.Path("indicateurs.augmentations.résultat"), AugmentationsThresholds)
		if ok {
			maximum += maxAugmentations
			if corrected(populationFavorable, data, "indicateurs.augmentations.population_favorable") {
				note = maxAugmentations
			}
			data.SetPath("indicateurs.augmentations.note", note)
			points += note
		}
	}

	if data.Path("indicateurs.augmentations_et_promotions.non_calculable") == nil {
		percent, hasPercent := ComputeNote(
			data.Path("indicateurs.augmentations_et_promotions.résultat"),
			AugmentationsPromotionsThresholds,
		)
		if hasPercent {
			data.SetPath("indicateurs.augmentations_et_promotions.note_en_pourcentage", percent)
		}
		absolute, hasAbsolute := ComputeNote(
			data.Path("indicateurs.augmentations_et_promotions.résultat_nombre_salariés"),
			AugmentationsPromotionsThresholds,
		)
		if hasAbsolute {
			data.SetPath("indicateurs.augmentations_et_promotions.note_nombre_salariés", absolute)
		}
		if hasPercent || hasAbsolute {
			note := max(percent, absolute)
			maximum += maxAugmentationsPromotions
			if corrected(populationFavorable, data, "indicateurs.augmentations_et_promotions.population_favorable") {
				note = maxAugmentationsPromotions
			}
			data.SetPath("indicateurs.augmentations_et_promotions.note", note)
			points += note
		}
	}

	if data.Path("indicateurs.promotions.non_calculable") == nil {
		note, ok := ComputeNote(data.Path("indicateurs.promotions.résultat"), PromotionsThresholds)
		if ok {
			maximum += maxPromotions
			if corrected(populationFavorable, data, "indicateurs.promotions.population_favorable") {
				note = maxPromotions
			}
			data.SetPath("indicateurs.promotions.note", note)
			points += note
		}
	}

	if data.Path("indicateurs.congés_maternité.non_calculable") == nil {
		if resultat, ok := toFloat(data.Path("indicateurs.congés_maternité.résultat")); ok {
			note := 0
			if resultat == 100 {
				note = maxCongesMaternite
			}
			maximum += maxCongesMaternite
			data.SetPath("indicateurs.congés_maternité.note", note)
			points += note
		}
	}

	if note, ok := ComputeNote(data.Path("indicateurs.hautes_rémunérations.résultat"), HautesRemunerationsThresholds); ok {
		maximum += maxHautesRemunerations
		data.SetPath("indicateurs.hautes_rémunérations.note", note)
		points += note
	}

	data.SetPath("déclaration.points", points)
	data.SetPath("déclaration.points_calculables", maximum)
	if maximum >= minimumForIndex {
		// Round halfway cases up.
		data.SetPath("déclaration.index", int(math.Floor(float64(points)/float64(maximum)*100+0.5)))
	}
}

// corrected applies the annexe 5.2 rule: an indicator whose own population
// favorable is defined and opposite to the rémunérations reference gets its
// maximum note regardless of the measured gap.
func corrected(reference string, data domain.Data, path string) bool {
	if reference == "" {
		return false
	}
	return data.PathString(path) != reference
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
