package matcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Filter config keys of trigger nodes.
const (
	FilterMimeTypes       = "mime_types"
	FilterNameContains    = "name_contains"
	FilterMinSize         = "min_size"
	FilterMaxSize         = "max_size"
	FilterCreatorEmail    = "creator_email"
	FilterWorkHoursOnly   = "work_hours_only"
	FilterWorkHoursStart  = "work_hours_start"
	FilterWorkHoursEnd    = "work_hours_end"
	FilterTimezone        = "timezone"
	FilterExcludeWeekends = "exclude_weekends"
	FilterRequiredColumns = "required_columns"
	FilterSkipEmptyRows   = "skip_empty_rows"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Filters are the content predicates of a trigger node. A change matches only
// when every configured predicate passes.
type Filters struct {
	MimeTypes       []string
	NameContains    string
	MinSize         *int64 `validate:"omitempty,gte=0"`
	MaxSize         *int64 `validate:"omitempty,gte=0"`
	CreatorEmail    string `validate:"omitempty,email"`
	WorkHoursOnly   bool
	WorkHoursStart  int            `validate:"gte=0,lte=24"`
	WorkHoursEnd    int            `validate:"gte=0,lte=24,gtefield=WorkHoursStart"`
	Location        *time.Location `validate:"-"`
	ExcludeWeekends bool
	RequiredColumns []string
	SkipEmptyRows   bool
}

// ParseFilters reads the filter keys of a node config.
func ParseFilters(config map[string]any) (Filters, error) {
	filters := Filters{WorkHoursStart: 9, WorkHoursEnd: 17, Location: time.UTC}

	var err error

	if filters.MimeTypes, err = stringList(config[FilterMimeTypes]); err != nil {
		return filters, fmt.Errorf("%s: %w", FilterMimeTypes, err)
	}

	if filters.RequiredColumns, err = stringList(config[FilterRequiredColumns]); err != nil {
		return filters, fmt.Errorf("%s: %w", FilterRequiredColumns, err)
	}

	filters.NameContains, _ = config[FilterNameContains].(string)
	filters.CreatorEmail, _ = config[FilterCreatorEmail].(string)
	filters.WorkHoursOnly = boolValue(config[FilterWorkHoursOnly])
	filters.ExcludeWeekends = boolValue(config[FilterExcludeWeekends])
	filters.SkipEmptyRows = boolValue(config[FilterSkipEmptyRows])

	for key, target := range map[string]**int64{FilterMinSize: &filters.MinSize, FilterMaxSize: &filters.MaxSize} {
		value, ok, err := intValue(config[key])
		if err != nil {
			return filters, fmt.Errorf("%s: %w", key, err)
		}

		if ok {
			*target = &value
		}
	}

	for key, target := range map[string]*int{FilterWorkHoursStart: &filters.WorkHoursStart, FilterWorkHoursEnd: &filters.WorkHoursEnd} {
		value, ok, err := intValue(config[key])
		if err != nil {
			return filters, fmt.Errorf("%s: %w", key, err)
		}

		if ok {
			*target = int(value)
		}
	}

	if name, _ := config[FilterTimezone].(string); name != "" {
		location, err := time.LoadLocation(name)
		if err != nil {
			return filters, fmt.Errorf("%s: %w", FilterTimezone, err)
		}

		filters.Location = location
	}

	if err := validate.Struct(filters); err != nil {
		return filters, err
	}

	return filters, nil
}

// Match checks every configured predicate and returns the first failing one.
func (f Filters) Match(change *models.Change) (bool, string) {
	raw := change.Raw

	if len(f.MimeTypes) > 0 && !mimeAllowed(f.MimeTypes, raw.MimeType) {
		return false, FilterMimeTypes
	}

	if f.NameContains != "" && !strings.Contains(strings.ToLower(raw.Name), strings.ToLower(f.NameContains)) {
		return false, FilterNameContains
	}

	if f.MinSize != nil && (raw.Size == nil || *raw.Size < *f.MinSize) {
		return false, FilterMinSize
	}

	if f.MaxSize != nil && (raw.Size == nil || *raw.Size > *f.MaxSize) {
		return false, FilterMaxSize
	}

	if f.CreatorEmail != "" && !strings.EqualFold(f.CreatorEmail, raw.CreatorEmail) {
		return false, FilterCreatorEmail
	}

	if f.WorkHoursOnly || f.ExcludeWeekends {
		when := raw.StartsAt
		if when == nil {
			when = change.Timestamp
		}

		if when == nil {
			if f.WorkHoursOnly {
				return false, FilterWorkHoursOnly
			}

			return false, FilterExcludeWeekends
		}

		local := when.In(f.Location)

		if f.ExcludeWeekends && (local.Weekday() == time.Saturday || local.Weekday() == time.Sunday) {
			return false, FilterExcludeWeekends
		}

		if f.WorkHoursOnly && (local.Hour() < f.WorkHoursStart || local.Hour() >= f.WorkHoursEnd) {
			return false, FilterWorkHoursOnly
		}
	}

	for _, column := range f.RequiredColumns {
		if isEmpty(raw.Values[column]) {
			return false, FilterRequiredColumns
		}
	}

	if f.SkipEmptyRows && raw.ResourceKind == models.ResourceRow && emptyRow(raw.Values) {
		return false, FilterSkipEmptyRows
	}

	return true, ""
}

// mimeAllowed matches exact types and "type/*" wildcards.
func mimeAllowed(allowed []string, mimeType string) bool {
	mimeType = strings.ToLower(mimeType)

	for _, pattern := range allowed {
		pattern = strings.ToLower(strings.TrimSpace(pattern))

		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}

			continue
		}

		if pattern == mimeType {
			return true
		}
	}

	return false
}

func emptyRow(values map[string]any) bool {
	for _, value := range values {
		if !isEmpty(value) {
			return false
		}
	}

	return true
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		var list []string

		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}

		return list, nil
	case []string:
		return v, nil
	case []any:
		list := make([]string, 0, len(v))

		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}

			list = append(list, s)
		}

		return list, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

func intValue(value any) (int64, bool, error) {
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case float64:
		return int64(v), true, nil
	case string:
		if v == "" {
			return 0, false, nil
		}

		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, err
		}

		return n, true, nil
	default:
		return 0, false, fmt.Errorf("expected a number, got %T", value)
	}
}

func boolValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)

		return b
	default:
		return false
	}
}
