package services

import (
	"strconv"
	"time"
)

// CompletedYears returns the age in whole years at now. The birthday counts
// only once its month and day have been reached in the current year.
func CompletedYears(birthDate time.Time, now time.Time) int {
	if birthDate.IsZero() {
		return 0
	}

	birthYear, birthMonth, birthDay := birthDate.Date()
	year, month, day := now.Date()

	age := year - birthYear
	if month < birthMonth || (month == birthMonth && day < birthDay) {
		age--
	}
	return age
}

// monthsBetween counts calendar months from start to end, ignoring the day of month.
func monthsBetween(start time.Time, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

var portugueseMonthNames = [...]string{
	"janeiro",
	"fevereiro",
	"março",
	"abril",
	"maio",
	"junho",
	"julho",
	"agosto",
	"setembro",
	"outubro",
	"novembro",
	"dezembro",
}

// FormatMonthYear renders a date as "outubro de 2026".
func FormatMonthYear(value time.Time) string {
	return portugueseMonthNames[value.Month()-1] + " de " + strconv.Itoa(value.Year())
}
