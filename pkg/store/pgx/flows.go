package pgx

import (
	"context"
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
)

const flowRowsSQL = `
SELECT reporting, reporting_type, reporting_parent_entity,
       partner, partner_type, partner_parent_entity,
       flow, unit, rate, expimp
FROM flow_joined
WHERE flow IS NOT NULL AND rate IS NOT NULL
  AND year = $1
  AND partner IS NOT NULL AND partner NOT LIKE 'world%'
`

type flowScan struct {
	reporting       string
	reportingType   *string
	reportingParent *string
	partner         string
	partnerType     *string
	partnerParent   *string
	flow            float64
	unit            *float64
	rate            float64
	expimp          string
}

func (f flowScan) row(year int) (common.TradeRow, error) {
	var dir common.Direction
	switch f.expimp {
	case "Exp":
		dir = common.Export
	case "Imp":
		dir = common.Import
	default:
		return common.TradeRow{}, fmt.Errorf("flow %s -> %s in %d has direction %q", f.reporting, f.partner, year, f.expimp)
	}
	r := common.TradeRow{
		Year:           year,
		Reporter:       f.reporting,
		ReporterKind:   common.RICKind(deref(f.reportingType)),
		ReporterParent: deref(f.reportingParent),
		Partner:        f.partner,
		PartnerKind:    common.RICKind(deref(f.partnerType)),
		PartnerParent:  deref(f.partnerParent),
		Flow:           f.flow,
		Rate:           f.rate,
		Direction:      dir,
	}
	if f.unit != nil {
		r.Unit = *f.unit
	}
	return r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FlowRows returns the valued flows of year. Flows towards world totals are
// excluded.
func (s *GraphDBStorage) FlowRows(ctx context.Context, year int) ([]common.TradeRow, error) {
	rows, err := s.conn.Query(ctx, flowRowsSQL, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows of %d: %w", year, err)
	}
	defer rows.Close()

	var out []common.TradeRow
	for rows.Next() {
		var f flowScan
		if err := rows.Scan(
			&f.reporting, &f.reportingType, &f.reportingParent,
			&f.partner, &f.partnerType, &f.partnerParent,
			&f.flow, &f.unit, &f.rate, &f.expimp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow of %d: %w", year, err)
		}
		r, err := f.row(year)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flows of %d: %w", year, err)
	}
	return out, nil
}
