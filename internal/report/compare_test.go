package report_test

import (
	"reflect"
	"testing"

	"amreingest/internal/report"
)

func TestCompare(t *testing.T) {
	inventory := map[string]int{pkgA: 1, pkgB: 2, pkgC: 3}

	tests := []struct {
		name          string
		list          []string
		onlyInList    []string
		onlyInStorage []string
	}{
		{name: "identical", list: []string{pkgC, pkgA, pkgB, pkgA}, onlyInList: []string{}, onlyInStorage: []string{}},
		{name: "list missing one", list: []string{pkgA, pkgB}, onlyInList: []string{}, onlyInStorage: []string{pkgC}},
		{name: "list has extra", list: []string{pkgA, pkgB, pkgC, pkgD}, onlyInList: []string{pkgD}, onlyInStorage: []string{}},
		{name: "empty list", list: nil, onlyInList: []string{}, onlyInStorage: []string{pkgA, pkgB, pkgC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := report.Compare(tt.list, inventory)
			if !reflect.DeepEqual(cmp.OnlyInList, tt.onlyInList) {
				t.Fatalf("OnlyInList = %v, want %v", cmp.OnlyInList, tt.onlyInList)
			}
			if !reflect.DeepEqual(cmp.OnlyInStorage, tt.onlyInStorage) {
				t.Fatalf("OnlyInStorage = %v, want %v", cmp.OnlyInStorage, tt.onlyInStorage)
			}
			wantIdentical := len(tt.onlyInList) == 0 && len(tt.onlyInStorage) == 0
			if cmp.Identical() != wantIdentical {
				t.Fatalf("Identical() = %v, want %v", cmp.Identical(), wantIdentical)
			}
		})
	}
}
