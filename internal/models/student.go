package models

// Student represents a learner registered in the institution.
type Student struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
	BirthDate *Date  `db:"birth_date" json:"birthDate"`
}
