package entities

// ParsedTable is decoder output. Every row has len(Headers) cells.
type ParsedTable struct {
	Headers []string   `json:"headers" msgpack:"headers"`
	Rows    [][]string `json:"rows" msgpack:"rows"`
}

func EmptyTable() ParsedTable {
	return ParsedTable{Headers: []string{}, Rows: [][]string{}}
}
