package database

const (
	SortFilenameAsc = "filename_asc"
	SortFilenameNat = "filename_nat"
	SortCategory    = "category_asc"
)

const DefaultSortOrder = SortFilenameNat

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortFilenameAsc, SortFilenameNat, SortCategory:
		return true
	default:
		return false
	}
}
