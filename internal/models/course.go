package models

// Course is a catalogue entry looked up by its unique name.
type Course struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}
