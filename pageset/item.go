package pageset

import (
	"cmp"
	"slices"
)

// Item is a single cached entry, ordered solely by Key.
type Item[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

func compareItems[K cmp.Ordered, V any](a, b Item[K, V]) int {
	return cmp.Compare(a.Key, b.Key)
}

// normalize returns a sorted copy of items with duplicate keys collapsed.
// For duplicates within the batch, the later item wins.
func normalize[K cmp.Ordered, V any](items []Item[K, V]) []Item[K, V] {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item[K, V], len(items))
	copy(out, items)
	slices.SortStableFunc(out, compareItems)

	// Keep the last occurrence of each key.
	w := 0
	for i := 0; i < len(out); i++ {
		if w > 0 && out[w-1].Key == out[i].Key {
			out[w-1] = out[i]
			continue
		}
		out[w] = out[i]
		w++
	}
	return out[:w]
}

// mergeSorted unions two key-sorted item slices. Both inputs must be sorted
// with unique keys. On a shared key the item from b wins.
func mergeSorted[K cmp.Ordered, V any](a, b []Item[K, V]) []Item[K, V] {
	out := make([]Item[K, V], 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Key < b[j].Key:
			out = append(out, a[i])
			i++
		case a[i].Key > b[j].Key:
			out = append(out, b[j])
			j++
		default:
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
