package report

import "sort"

// Comparison is the set difference between an operator's package list and
// the Storage Service inventory.
type Comparison struct {
	ListCount     int      `json:"list_count"`
	StorageCount  int      `json:"storage_count"`
	OnlyInList    []string `json:"only_in_list"`
	OnlyInStorage []string `json:"only_in_storage"`
}

// Identical reports whether both sides hold the same packages.
func (c Comparison) Identical() bool {
	return len(c.OnlyInList) == 0 && len(c.OnlyInStorage) == 0
}

// Compare diffs list against the inventory keys. Duplicates in list are
// ignored and both differences are sorted.
func Compare[V any](list []string, inventory map[string]V) Comparison {
	listed := make(map[string]struct{}, len(list))
	for _, id := range list {
		listed[id] = struct{}{}
	}

	cmp := Comparison{
		ListCount:     len(listed),
		StorageCount:  len(inventory),
		OnlyInList:    []string{},
		OnlyInStorage: []string{},
	}
	for id := range listed {
		if _, ok := inventory[id]; !ok {
			cmp.OnlyInList = append(cmp.OnlyInList, id)
		}
	}
	for id := range inventory {
		if _, ok := listed[id]; !ok {
			cmp.OnlyInStorage = append(cmp.OnlyInStorage, id)
		}
	}
	sort.Strings(cmp.OnlyInList)
	sort.Strings(cmp.OnlyInStorage)
	return cmp
}
