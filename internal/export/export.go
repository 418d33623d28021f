// Package export renders the published declarations for the regulator: a
// semicolon CSV summary and a full JSON dump.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"parite/internal/declaration"
	"parite/internal/domain"
)

// Source iterates the published declarations, oldest first.
type Source interface {
	Completed(ctx context.Context, fn func(declaration.Record) error) error
}

var csvHeader = []string{
	"Raison Sociale",
	"SIREN",
	"Année",
	"Note",
	"Structure",
	"Nom UES",
	"Entreprises UES (SIREN)",
	"Région",
	"Département",
}

// CSV writes one row per published declaration.
func CSV(ctx context.Context, source Source, w io.Writer) error {
	out := csv.NewWriter(w)
	out.Comma = ';'
	if err := out.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	err := source.Completed(ctx, func(record declaration.Record) error {
		if err := out.Write(row(record)); err != nil {
			return fmt.Errorf("write csv row %s/%d: %w", record.Siren, record.Year, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.Flush()
	return out.Error()
}

func row(record declaration.Record) []string {
	data := record.Data
	note := ""
	if index, ok := data.Index(); ok {
		note = fmt.Sprint(index)
	}
	structure := "Entreprise"
	if data.Path("entreprise.ues") != nil {
		structure = "Entreprise UES"
	}
	return []string{
		data.Company(),
		record.Siren,
		fmt.Sprint(record.Year),
		note,
		structure,
		data.UESName(),
		uesMembers(data),
		domain.Regions[data.Region()],
		domain.Departements[data.Departement()],
	}
}

// uesMembers renders "name (siren),name (siren)" for the UES composition.
func uesMembers(data domain.Data) string {
	members, ok := data.Path("entreprise.ues.entreprises").([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(members))
	for _, m := range members {
		member, ok := m.(map[string]any)
		if !ok {
			continue
		}
		name, _ := member["raison_sociale"].(string)
		siren, _ := member["siren"].(string)
		parts = append(parts, fmt.Sprintf("%s (%s)", name, siren))
	}
	return strings.Join(parts, ",")
}

// JSON streams the full documents as one JSON array.
func JSON(ctx context.Context, source Source, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("write json dump: %w", err)
	}
	first := true
	encoder := json.NewEncoder(w)
	err := source.Completed(ctx, func(record declaration.Record) error {
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write json dump: %w", err)
			}
		}
		first = false
		if err := encoder.Encode(record.Data); err != nil {
			return fmt.Errorf("encode declaration %s/%d: %w", record.Siren, record.Year, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("write json dump: %w", err)
	}
	return nil
}
