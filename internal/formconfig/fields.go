// Package formconfig holds the per-job application form configuration: the
// fixed set of governable fields, the visibility mode of each field, and the
// validation rules used to check a candidate submission against a config.
package formconfig

// FieldKey names one of the application fields a candidate can fill in.
type FieldKey string

const (
	FieldFullName          FieldKey = "fullName"
	FieldEmail             FieldKey = "email"
	FieldPhone             FieldKey = "phone"
	FieldDateOfBirth       FieldKey = "dateOfBirth"
	FieldGender            FieldKey = "gender"
	FieldNationality       FieldKey = "nationality"
	FieldCurrentLocation   FieldKey = "currentLocation"
	FieldLinkedinProfile   FieldKey = "linkedinProfile"
	FieldPortfolioURL      FieldKey = "portfolioUrl"
	FieldResumeURL         FieldKey = "resumeUrl"
	FieldCoverLetter       FieldKey = "coverLetter"
	FieldCurrentCompany    FieldKey = "currentCompany"
	FieldCurrentPosition   FieldKey = "currentPosition"
	FieldYearsOfExperience FieldKey = "yearsOfExperience"
	FieldCurrentSalary     FieldKey = "currentSalary"
	FieldExpectedSalary    FieldKey = "expectedSalary"
	FieldNoticePeriod      FieldKey = "noticePeriod"
	FieldHighestEducation  FieldKey = "highestEducation"
	FieldSkills            FieldKey = "skills"
	FieldAvailableFrom     FieldKey = "availableFrom"
)

// Field pairs a key with the label shown in the admin editor and the
// candidate form.
type Field struct {
	Key   FieldKey `json:"key"`
	Label string   `json:"label"`
}

// Fields is the ordered list of governable fields. Every pass over a
// submission walks this slice so results are deterministic.
var Fields = []Field{
	{FieldFullName, "Full name"},
	{FieldEmail, "Email address"},
	{FieldPhone, "Phone number"},
	{FieldDateOfBirth, "Date of birth"},
	{FieldGender, "Gender"},
	{FieldNationality, "Nationality"},
	{FieldCurrentLocation, "Current location"},
	{FieldLinkedinProfile, "LinkedIn profile"},
	{FieldPortfolioURL, "Portfolio / website"},
	{FieldResumeURL, "Resume"},
	{FieldCoverLetter, "Cover letter"},
	{FieldCurrentCompany, "Current company"},
	{FieldCurrentPosition, "Current position"},
	{FieldYearsOfExperience, "Years of experience"},
	{FieldCurrentSalary, "Current salary"},
	{FieldExpectedSalary, "Expected salary"},
	{FieldNoticePeriod, "Notice period"},
	{FieldHighestEducation, "Highest education"},
	{FieldSkills, "Key skills"},
	{FieldAvailableFrom, "Available from"},
}

var fieldIndex = func() map[FieldKey]Field {
	m := make(map[FieldKey]Field, len(Fields))
	for _, f := range Fields {
		m[f.Key] = f
	}
	return m
}()

// IsKnownField reports whether key belongs to the governable field set.
func IsKnownField(key FieldKey) bool {
	_, ok := fieldIndex[key]
	return ok
}

// Label returns the human readable label for key, or the key itself when it
// is not a known field.
func Label(key FieldKey) string {
	if f, ok := fieldIndex[key]; ok {
		return f.Label
	}
	return string(key)
}
