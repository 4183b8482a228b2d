package utxo

import (
	"bytes"
	"sort"

	"github.com/bitnames/bitnames/model"
)

// SortUtxos orders utxos by transaction id, then output index.
func SortUtxos(utxos []*model.Utxo) {
	sort.Slice(utxos, func(i, j int) bool {
		if c := bytes.Compare(utxos[i].OutPoint.TxID[:], utxos[j].OutPoint.TxID[:]); c != 0 {
			return c < 0
		}

		return utxos[i].OutPoint.Vout < utxos[j].OutPoint.Vout
	})
}

// UniqueAddresses drops repeated addresses, keeping the first occurrence.
func UniqueAddresses(addresses []model.Address) []model.Address {
	seen := make(map[model.Address]struct{}, len(addresses))
	unique := make([]model.Address, 0, len(addresses))

	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}

		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	return unique
}

// SortBitNames orders names by key bytes.
func SortBitNames(names []model.BitName) {
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare(names[i].Key[:], names[j].Key[:]) < 0
	})
}

// PageBounds clamps the [offset, offset+limit) window to a list of n items. A limit of zero
// or less means no limit.
func PageBounds(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}

	if offset > n {
		offset = n
	}

	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}

	return offset, end
}
