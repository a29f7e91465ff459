package chart

import (
	"fmt"

	"github.com/queryviz/queryviz/internal/tabular"
)

// Plan binds a chart kind to concrete columns. Every bound column is
// guaranteed to exist in the table the plan was derived from.
type Plan struct {
	Kind     Kind
	Title    string
	Bindings map[Channel]string
	Reason   string
	// SortByX asks the renderer to order rows by the x column ascending,
	// used for temporal line charts.
	SortByX bool
	// CountColumn names a synthesized value-count column the renderer must
	// attach before projecting (single-categorical pie).
	CountColumn string
	// IndexColumn names a synthesized 1..N row-index column the renderer
	// must attach (single-column fallback).
	IndexColumn string
}

const maxPlans = 3

// Planner derives up to maxPlans chart plans from a classified table.
type Planner struct{}

func (Planner) Plan(table tabular.Table, profiles []tabular.Profile, question string, requested Kind) []Plan {
	byKind := groupProfiles(profiles)

	var plans []Plan
	if requested != "" {
		if plan, ok := planForKind(requested, byKind, "requested in question"); ok {
			plans = append(plans, plan)
		}
	}
	if len(plans) == 0 {
		plans = shapeDerivedPlans(byKind)
	}
	if len(plans) == 0 {
		plans = append(plans, fallbackPlan(table))
	}
	if len(plans) > maxPlans {
		plans = plans[:maxPlans]
	}
	return plans
}

type profileGroups struct {
	numeric     []tabular.Profile
	categorical []tabular.Profile
	temporal    []tabular.Profile
}

func groupProfiles(profiles []tabular.Profile) profileGroups {
	var groups profileGroups
	for _, profile := range profiles {
		switch profile.Kind {
		case tabular.KindNumeric:
			groups.numeric = append(groups.numeric, profile)
		case tabular.KindCategorical:
			groups.categorical = append(groups.categorical, profile)
		case tabular.KindTemporal:
			groups.temporal = append(groups.temporal, profile)
		}
	}
	return groups
}

func planForKind(kind Kind, groups profileGroups, reason string) (Plan, bool) {
	switch kind {
	case KindPie:
		if len(groups.categorical) > 0 && len(groups.numeric) > 0 {
			names, values := groups.categorical[0].Name, groups.numeric[0].Name
			return newPlan(kind, reason, map[Channel]string{ChannelNames: names, ChannelValues: values},
				fmt.Sprintf("Share of %s by %s", values, names)), true
		}
	case KindBar:
		if len(groups.categorical) > 0 && len(groups.numeric) > 0 {
			x, y := groups.categorical[0].Name, groups.numeric[0].Name
			return newPlan(kind, reason, map[Channel]string{ChannelX: x, ChannelY: y},
				fmt.Sprintf("%s by %s", y, x)), true
		}
	case KindLine, KindArea:
		if len(groups.numeric) > 0 {
			y := groups.numeric[0].Name
			if len(groups.temporal) > 0 {
				x := groups.temporal[0].Name
				plan := sortedXYPlan(kind, reason, x, y)
				return plan, true
			}
			if len(groups.categorical) > 0 {
				x := groups.categorical[0].Name
				return sortedXYPlan(kind, reason, x, y), true
			}
		}
	case KindScatter:
		if len(groups.numeric) >= 2 {
			x, y := groups.numeric[0].Name, groups.numeric[1].Name
			return scatterPlan(reason, groups, x, y), true
		}
	case KindHistogram, KindBox, KindViolin:
		if len(groups.numeric) > 0 {
			x := groups.numeric[0].Name
			return distributionPlan(kind, reason, x), true
		}
	}
	return Plan{}, false
}

func shapeDerivedPlans(groups profileGroups) []Plan {
	switch {
	case len(groups.numeric) > 0 && len(groups.categorical) > 0:
		x, y := groups.categorical[0].Name, groups.numeric[0].Name
		bar := newPlan(KindBar, "categorical and numeric columns present",
			map[Channel]string{ChannelX: x, ChannelY: y}, fmt.Sprintf("%s by %s", y, x))
		pie := newPlan(KindPie, "categorical and numeric columns present",
			map[Channel]string{ChannelNames: x, ChannelValues: y}, fmt.Sprintf("Share of %s by %s", y, x))
		return []Plan{bar, pie}
	case len(groups.numeric) >= 2:
		x, y := groups.numeric[0].Name, groups.numeric[1].Name
		return []Plan{scatterPlan("two or more numeric columns", groups, x, y)}
	case len(groups.temporal) > 0 && len(groups.numeric) > 0:
		return []Plan{sortedXYPlan(KindLine, "temporal and numeric columns present", groups.temporal[0].Name, groups.numeric[0].Name)}
	case len(groups.numeric) == 1:
		return []Plan{distributionPlan(KindHistogram, "single numeric column", groups.numeric[0].Name)}
	case len(groups.categorical) == 1:
		name := groups.categorical[0].Name
		plan := newPlan(KindPie, "single categorical column: counting values",
			map[Channel]string{ChannelNames: name, ChannelValues: name + "_count"},
			fmt.Sprintf("Distribution of %s", name))
		plan.CountColumn = name
		return []Plan{plan}
	}
	return nil
}

// fallbackPlan always exists so an entirely unknown-typed table still gets a
// chart: x from the first column, y from the second or a synthesized index.
func fallbackPlan(table tabular.Table) Plan {
	bindings := map[Channel]string{}
	title := "Query result"
	indexColumn := ""
	switch {
	case table.NumColumns() >= 2:
		bindings[ChannelX] = table.Columns[0].Name
		bindings[ChannelY] = table.Columns[1].Name
		title = fmt.Sprintf("%s by %s", table.Columns[1].Name, table.Columns[0].Name)
	case table.NumColumns() == 1:
		indexColumn = "row_index"
		bindings[ChannelX] = table.Columns[0].Name
		bindings[ChannelY] = indexColumn
	}
	return Plan{
		Kind:        KindBar,
		Title:       title,
		Bindings:    bindings,
		Reason:      "no confident plan: falling back to a bar over the leading columns",
		IndexColumn: indexColumn,
	}
}

// Validate rejects plans whose bindings reference columns the table lacks.
func (p Plan) Validate(table tabular.Table) error {
	for channel, column := range p.Bindings {
		if p.CountColumn != "" && column == p.CountColumn+"_count" {
			continue
		}
		if p.IndexColumn != "" && column == p.IndexColumn {
			continue
		}
		if !table.HasColumn(column) {
			return fmt.Errorf("channel %q bound to missing column %q", channel, column)
		}
	}
	return nil
}

func newPlan(kind Kind, reason string, bindings map[Channel]string, subject string) Plan {
	return Plan{
		Kind:     kind,
		Title:    fmt.Sprintf("%s (%s chart)", subject, kind),
		Bindings: bindings,
		Reason:   reason,
	}
}

func sortedXYPlan(kind Kind, reason, x, y string) Plan {
	plan := newPlan(kind, reason, map[Channel]string{ChannelX: x, ChannelY: y},
		fmt.Sprintf("%s over %s", y, x))
	plan.SortByX = true
	return plan
}

func scatterPlan(reason string, groups profileGroups, x, y string) Plan {
	bindings := map[Channel]string{ChannelX: x, ChannelY: y}
	if len(groups.categorical) > 0 {
		bindings[ChannelColor] = groups.categorical[0].Name
	}
	if len(groups.numeric) >= 3 {
		bindings[ChannelSize] = groups.numeric[2].Name
	}
	return newPlan(KindScatter, reason, bindings, fmt.Sprintf("%s vs %s", y, x))
}

func distributionPlan(kind Kind, reason, x string) Plan {
	return newPlan(kind, reason, map[Channel]string{ChannelX: x},
		fmt.Sprintf("Distribution of %s", x))
}
