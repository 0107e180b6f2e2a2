package coverage

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings like "4h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// HolidayRule is one configured market closure day (UTC calendar date).
type HolidayRule struct {
	Date string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Name string `yaml:"name" validate:"required"`
}

// Rules configures gap classification. Loaded from yaml and validated;
// an invalid rule set is a structural configuration error and is
// returned to the caller, unlike data-availability conditions.
type Rules struct {
	// Short/Moderate thresholds split unexplained gaps by severity.
	ShortThreshold    Duration `yaml:"short_threshold" validate:"required"`
	ModerateThreshold Duration `yaml:"moderate_threshold" validate:"required"`

	// Weekend closure window: Friday close hour to Sunday open hour,
	// both UTC. The tolerance around both boundaries is deliberately a
	// required setting with no built-in default; the right slack depends
	// on the upstream source's session conventions.
	WeekendCloseHour int      `yaml:"weekend_close_hour_utc" validate:"min=0,max=23"`
	WeekendOpenHour  int      `yaml:"weekend_open_hour_utc" validate:"min=0,max=23"`
	WeekendTolerance Duration `yaml:"weekend_tolerance" validate:"required"`

	Holidays []HolidayRule `yaml:"holidays" validate:"dive"`

	// Local calendar used for the timezone cross-check on weekend and
	// holiday gaps, with the offsets (seconds east of UTC) the source's
	// timestamps are expected to produce in standard and DST time.
	Timezone        string `yaml:"timezone" validate:"required"`
	ExpectedOffsets []int  `yaml:"expected_utc_offsets" validate:"required,min=1"`
}

// LoadRules reads and validates a rules yaml file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return &r, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate enforces structural constraints beyond yaml well-formedness.
func (r *Rules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ShortThreshold.Std() >= r.ModerateThreshold.Std() {
		return fmt.Errorf("short_threshold %s must be below moderate_threshold %s",
			r.ShortThreshold.Std(), r.ModerateThreshold.Std())
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", r.Timezone, err)
	}
	for _, h := range r.Holidays {
		if _, err := time.Parse("2006-01-02", h.Date); err != nil {
			return fmt.Errorf("holiday %q: bad date %q", h.Name, h.Date)
		}
	}
	return nil
}

// holidayWindow returns the UTC day interval of a holiday.
func (h HolidayRule) window() (start, end time.Time) {
	day, _ := time.Parse("2006-01-02", h.Date)
	return day, day.Add(24 * time.Hour)
}
