package diff

// Reverse returns the diff as if live and stored had been swapped: Added
// becomes Removed and every Old/New pair is exchanged. The receiver is not
// modified.
func (d *CatalogDiff) Reverse() *CatalogDiff {
	out := &CatalogDiff{Name: d.Name}
	for i := range d.Schemas {
		out.Schemas = append(out.Schemas, d.Schemas[i].Reverse())
	}
	return out
}

func (d SchemaDiff) Reverse() SchemaDiff {
	out := d
	out.Status = d.Status.Reverse()
	out.Changes = reverseChanges(d.Changes)
	out.Tables = nil
	for i := range d.Tables {
		out.Tables = append(out.Tables, d.Tables[i].Reverse())
	}
	return out
}

func (d TableDiff) Reverse() TableDiff {
	out := d
	out.Status = d.Status.Reverse()
	out.Changes = reverseChanges(d.Changes)
	out.Columns = nil
	for i := range d.Columns {
		out.Columns = append(out.Columns, d.Columns[i].Reverse())
	}
	if d.PrimaryKey != nil {
		pk := d.PrimaryKey.Reverse()
		out.PrimaryKey = &pk
	}
	out.ForeignKeys = nil
	for i := range d.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, d.ForeignKeys[i].Reverse())
	}
	return out
}

func (d ColumnDiff) Reverse() ColumnDiff {
	out := d
	out.Status = d.Status.Reverse()
	out.Changes = reverseChanges(d.Changes)
	return out
}

func (d PrimaryKeyDiff) Reverse() PrimaryKeyDiff {
	return PrimaryKeyDiff{Name: d.Name, Status: d.Status.Reverse(), Old: d.New, New: d.Old}
}

func (d ForeignKeyDiff) Reverse() ForeignKeyDiff {
	return ForeignKeyDiff{Name: d.Name, Status: d.Status.Reverse(), Old: d.New, New: d.Old}
}

func reverseChanges(changes []FieldChange) []FieldChange {
	if changes == nil {
		return nil
	}
	out := make([]FieldChange, len(changes))
	for i, c := range changes {
		out[i] = c.Reverse()
	}
	return out
}
