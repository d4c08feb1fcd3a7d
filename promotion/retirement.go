package promotion

// DefaultRetirementAge is the age at which members retire.
const DefaultRetirementAge = 60

// RetirementDate returns the last day of the month in which a member born on
// dob turns age. The day of birth does not matter: everyone born in March
// 1970 retires on 31-03-2030.
func RetirementDate(dob Date, age int) Date {
	return EndOfMonth(dob.Year()+age, dob.Month())
}

// RetirementDateOf parses a textual DOB and derives the retirement date.
func RetirementDateOf(dob string, age int) (Date, error) {
	d, err := ParseDate(dob)
	if err != nil {
		return Date{}, err
	}
	return RetirementDate(d, age), nil
}
