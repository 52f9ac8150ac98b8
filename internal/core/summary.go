package core

// MonthTotal is a user's summed spending for one calendar month.
type MonthTotal struct {
	Month YearMonth
	Total Money
}

// DayTotal is a user's summed spending for one calendar day.
type DayTotal struct {
	Date  Date
	Total Money
}
