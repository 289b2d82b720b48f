package formconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Rule is the format constraint for one field, expressed as a validator tag.
// Messages maps a failing tag to the message shown to the candidate; Message
// is used for any tag without a specific entry.
type Rule struct {
	Tag      string
	Message  string
	Messages map[string]string
}

func (r Rule) messageFor(tag string) string {
	if msg, ok := r.Messages[tag]; ok {
		return msg
	}
	return r.Message
}

// Rules is the single rule table shared by the form schema and the intake
// gate's strict mode.
var Rules = map[FieldKey]Rule{
	FieldFullName: {Tag: "min=2,max=100", Message: "must be between 2 and 100 characters"},
	FieldEmail:    {Tag: "email,max=254", Message: "must be a valid email address"},
	FieldPhone:    {Tag: "phone_number", Message: "must be a valid phone number"},
	FieldDateOfBirth: {
		Tag:     "datetime=2006-01-02,plausible_date,adult_dob",
		Message: "must be a valid date (YYYY-MM-DD)",
		Messages: map[string]string{
			"adult_dob": "candidate must be at least 18 years old",
		},
	},
	FieldGender:          {Tag: "max=50", Message: "must be at most 50 characters"},
	FieldNationality:     {Tag: "max=100", Message: "must be at most 100 characters"},
	FieldCurrentLocation: {Tag: "max=200", Message: "must be at most 200 characters"},
	FieldLinkedinProfile: {
		Tag:     "url,linkedin_url",
		Message: "must be a valid URL",
		Messages: map[string]string{
			"linkedin_url": "must be a LinkedIn profile URL (linkedin.com)",
		},
	},
	FieldPortfolioURL:      {Tag: "url,max=500", Message: "must be a valid URL"},
	FieldResumeURL:         {Tag: "url,max=1000", Message: "must be a valid URL"},
	FieldCoverLetter:       {Tag: "max=5000", Message: "must be at most 5000 characters"},
	FieldCurrentCompany:    {Tag: "max=200", Message: "must be at most 200 characters"},
	FieldCurrentPosition:   {Tag: "max=200", Message: "must be at most 200 characters"},
	FieldYearsOfExperience: {Tag: "experience_years", Message: "must be a number between 0 and 70"},
	FieldCurrentSalary:     {Tag: "positive_amount", Message: "must be a positive number"},
	FieldExpectedSalary:    {Tag: "positive_amount", Message: "must be a positive number"},
	FieldNoticePeriod:      {Tag: "max=100", Message: "must be at most 100 characters"},
	FieldHighestEducation:  {Tag: "max=200", Message: "must be at most 200 characters"},
	FieldSkills:            {Tag: "min=3,max=500", Message: "must be between 3 and 500 characters"},
	FieldAvailableFrom: {
		Tag:     "datetime=2006-01-02,plausible_date",
		Message: "must be a valid date (YYYY-MM-DD)",
	},
}

const (
	dateLayout  = "2006-01-02"
	minimumAge  = 18
	maxYearsExp = 70
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-.]{6,19}$`)

// Builder compiles FieldConfigs into Schemas. A Builder is safe for
// concurrent use once constructed.
type Builder struct {
	validate *validator.Validate
	now      func() time.Time
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the clock used for age and date plausibility checks.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder with the custom format validators registered.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{validate: validator.New(), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	must := func(tag string, fn validator.Func) {
		if err := b.validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	must("phone_number", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	must("linkedin_url", func(fl validator.FieldLevel) bool {
		return strings.Contains(strings.ToLower(fl.Field().String()), "linkedin.com")
	})
	must("plausible_date", b.plausibleDate)
	must("adult_dob", b.adult)
	must("positive_amount", func(fl validator.FieldLevel) bool {
		v, ok := parseAmount(fl.Field().String())
		return ok && v > 0
	})
	must("experience_years", func(fl validator.FieldLevel) bool {
		v, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
		return err == nil && v >= 0 && v <= maxYearsExp
	})
	return b
}

func (b *Builder) plausibleDate(fl validator.FieldLevel) bool {
	d, err := time.Parse(dateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	now := b.now()
	return d.Year() >= 1900 && d.Before(now.AddDate(5, 0, 0))
}

func (b *Builder) adult(fl validator.FieldLevel) bool {
	dob, err := time.Parse(dateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	return !dob.AddDate(minimumAge, 0, 0).After(b.now())
}

func parseAmount(s string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CheckFormat validates a single non-empty value against the field's rule.
// It returns an empty string when the value is acceptable.
func (b *Builder) CheckFormat(key FieldKey, value string) string {
	rule, ok := Rules[key]
	if !ok || value == "" {
		return ""
	}
	return b.check(rule, value)
}

func (b *Builder) check(rule Rule, value string) string {
	err := b.validate.Var(value, rule.Tag)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return rule.Message
	}
	return rule.messageFor(verrs[0].Tag())
}

// Build produces the schema for cfg. Keys missing from cfg are optional.
func (b *Builder) Build(cfg FieldConfig) *Schema {
	return &Schema{builder: b, config: cfg.Clone()}
}

// Schema validates a complete candidate submission for one FieldConfig.
type Schema struct {
	builder *Builder
	config  FieldConfig
}

// Result is the outcome of Schema.Validate. Errors is keyed by field.
type Result struct {
	Valid  bool                `json:"valid"`
	Errors map[FieldKey]string `json:"errors,omitempty"`
}

// Validate checks every known field. Required fields must be present and
// well formed; any other field only has its format checked when present.
// Blank values count as not provided.
func (s *Schema) Validate(values Values) Result {
	errs := make(map[FieldKey]string)
	for _, f := range Fields {
		rule := Rules[f.Key]
		value := strings.TrimSpace(values[string(f.Key)])
		required := s.config.ModeFor(f.Key, AuthoringDefaultMode) == ModeRequired
		if value == "" {
			if required {
				errs[f.Key] = fmt.Sprintf("%s is required", f.Label)
			}
			continue
		}
		if msg := s.builder.check(rule, value); msg != "" {
			errs[f.Key] = fmt.Sprintf("%s %s", f.Label, msg)
		}
	}
	if len(errs) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, Errors: errs}
}

// Values is a raw candidate submission keyed by field name. Unknown keys may
// be present; consumers only look at known fields.
type Values map[string]string

// ValuesFromJSON flattens a decoded JSON object into Values. Strings, numbers
// and booleans are kept as text; null, objects and arrays are dropped.
func ValuesFromJSON(raw map[string]any) Values {
	out := make(Values, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out
}
