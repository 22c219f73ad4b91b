package corpus

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/quantfold/commentary-annotator/internal/model"
)

// LoadCompanies reads the company reference list from a CSV file with at
// least the columns "code" and "name".
func LoadCompanies(path string) ([]model.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open companies file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse companies file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("companies file %s is empty", path)
	}

	codeIdx, nameIdx := -1, -1
	for i, col := range rows[0] {
		switch col {
		case "code":
			codeIdx = i
		case "name":
			nameIdx = i
		}
	}
	if codeIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("companies file %s must have code and name columns", path)
	}

	companies := make([]model.Company, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= codeIdx || len(row) <= nameIdx {
			continue
		}
		if row[codeIdx] == "" {
			continue
		}
		companies = append(companies, model.Company{
			Code: row[codeIdx],
			Name: row[nameIdx],
		})
	}

	return companies, nil
}
