package schema

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Wire format for the registry document. Tables and metrics are declared as
// ordered lists because declaration order is part of the column-resolution
// contract.
type registryDoc struct {
	PrimaryFactTable string      `koanf:"primary_fact_table"`
	QuestionTypes    []string    `koanf:"question_types"`
	Tables           []tableDoc  `koanf:"tables"`
	Metrics          []metricDoc `koanf:"metrics"`
	Joins            []joinDoc   `koanf:"joins"`
}

type tableDoc struct {
	Name    string            `koanf:"name"`
	Columns map[string]string `koanf:"columns"`
}

type metricDoc struct {
	Name       string `koanf:"name"`
	Expression string `koanf:"expression"`
	Alias      string `koanf:"alias"`
}

type joinDoc struct {
	Left  string   `koanf:"left"`
	Right string   `koanf:"right"`
	Type  string   `koanf:"type"`
	Keys  []string `koanf:"keys"`
}

// Wire format for the business rules document.
type rulesDoc struct {
	SafetyLimits struct {
		MaxGroupByColumns int `koanf:"max_groupby_columns"`
	} `koanf:"safety_limits"`
	Validation struct {
		MaxRowsReturned int `koanf:"max_rows_returned"`
		SanityLimits    struct {
			RevenueGrowthMin    float64 `koanf:"revenue_growth_min"`
			RevenueGrowthMax    float64 `koanf:"revenue_growth_max"`
			CancellationRateMax float64 `koanf:"cancellation_rate_max"`
		} `koanf:"sanity_limits"`
	} `koanf:"validation"`
	ExecutiveSummary []string `koanf:"executive_summary"`
}

// Load reads the schema registry and business rules documents from YAML
// files. Both documents are trusted, static input; there is no reload.
func Load(registryPath, rulesPath string) (*Registry, error) {
	var reg registryDoc
	if err := loadYAML(registryPath, &reg); err != nil {
		return nil, fmt.Errorf("failed to load schema registry: %w", err)
	}

	var rules rulesDoc
	if err := loadYAML(rulesPath, &rules); err != nil {
		return nil, fmt.Errorf("failed to load business rules: %w", err)
	}

	return fromDocuments(reg, rules)
}

func loadYAML(path string, out any) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return err
	}
	if err := k.Unmarshal("", out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

func fromDocuments(reg registryDoc, rules rulesDoc) (*Registry, error) {
	r := &Registry{
		tables:        make(map[string]Table, len(reg.Tables)),
		metrics:       make(map[string]Metric, len(reg.Metrics)),
		questionTypes: make(map[string]struct{}, len(reg.QuestionTypes)),
		primaryFact:   reg.PrimaryFactTable,
	}

	for _, td := range reg.Tables {
		if td.Name == "" {
			return nil, fmt.Errorf("registry declares a table without a name")
		}
		cols := make(map[string]ColumnType, len(td.Columns))
		for col, typ := range td.Columns {
			ct, err := parseColumnType(typ)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", td.Name, col, err)
			}
			cols[col] = ct
		}
		r.tables[td.Name] = Table{Name: td.Name, Columns: cols}
		r.tableOrder = append(r.tableOrder, td.Name)
	}

	for _, md := range reg.Metrics {
		r.metrics[md.Name] = Metric{Expression: md.Expression, Alias: md.Alias}
		r.metricOrder = append(r.metricOrder, md.Name)
	}

	for _, qt := range reg.QuestionTypes {
		r.questionTypes[qt] = struct{}{}
		r.qtOrder = append(r.qtOrder, qt)
	}

	for _, jd := range reg.Joins {
		jt := jd.Type
		if jt == "" {
			jt = "left"
		}
		r.joins = append(r.joins, JoinRule{
			Left:  jd.Left,
			Right: jd.Right,
			Type:  jt,
			Keys:  append([]string(nil), jd.Keys...),
		})
	}

	r.rules = BusinessRules{
		MaxGroupByColumns: rules.SafetyLimits.MaxGroupByColumns,
		MaxRowsReturned:   rules.Validation.MaxRowsReturned,
		Sanity: SanityLimits{
			RevenueGrowthMin:    rules.Validation.SanityLimits.RevenueGrowthMin,
			RevenueGrowthMax:    rules.Validation.SanityLimits.RevenueGrowthMax,
			CancellationRateMax: rules.Validation.SanityLimits.CancellationRateMax,
		},
		ExecutiveSummary: append([]string(nil), rules.ExecutiveSummary...),
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseColumnType(s string) (ColumnType, error) {
	switch ColumnType(s) {
	case TypeString, TypeNumeric, TypeDate, TypeBool:
		return ColumnType(s), nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}
