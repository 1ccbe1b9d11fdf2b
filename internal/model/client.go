package model

// Field is one named cell of a client record.
type Field struct {
	// Name is the column header.
	Name string `json:"name"`

	// Value is the cell rendered for display: percentages scaled by 100
	// with two decimals, other numbers with two decimals, blanks empty.
	Value string `json:"value"`
}

// ClientRecord is a snapshot of the spreadsheet row for one client.
type ClientRecord struct {
	// Row is the 1-based worksheet row the record was read from.
	Row int `json:"row"`

	// Name is the value of the client-name column.
	Name string `json:"name"`

	// Fields holds every column under a non-empty header, in order.
	Fields []Field `json:"fields"`
}
