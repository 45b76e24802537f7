// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package qsort provides in-place quicksort and quickselect on float64 slices.
package qsort

// Sort an array of float64 in ascending order.
// Array must not contain IEEE NaN
func Sort(a []float64) {
	if len(a) > 1 {
		index := Partition(a)
		Sort(a[:index+1])
		Sort(a[index+1:])
	}
}

// Partitions an array of float64 with the middle pivot element, and returns the pivot index.
// Values less than the pivot are moved left of the pivot, those greater are moved right.
// Array must not contain IEEE NaN
func Partition(a []float64) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l, r := left-1, right+1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// Select kth lowest element from an array of float64, with k starting at 1.
// Partially reorders the array. Array must not contain IEEE NaN
func Select(a []float64, k int) float64 {
	left, right := 0, len(a)-1
	for left < right {
		index := left + Partition(a[left:right+1])
		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k -= offset
		}
	}
	return a[left]
}

// Median of an array of float64, averaging the two middle elements for even lengths.
// Partially reorders the array. Returns zero for an empty array.
// Array must not contain IEEE NaN
func MedianInPlace(a []float64) float64 {
	n := len(a)
	switch {
	case n == 0:
		return 0
	case n&1 != 0:
		return Select(a, n/2+1)
	}
	lo := Select(a, n/2)
	// after selection all elements right of the lower middle are at least as large
	hi := a[n/2]
	for _, v := range a[n/2+1:] {
		if v < hi {
			hi = v
		}
	}
	return 0.5 * (lo + hi)
}

// Median of an array of float64, leaving the input untouched
func Median(a []float64) float64 {
	return MedianInPlace(append([]float64(nil), a...))
}
