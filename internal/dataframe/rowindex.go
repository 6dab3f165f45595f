package dataframe

import (
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	xxhash "github.com/cespare/xxhash/v2"
)

const (
	rowIndexLoadFactor     = 0.75 // load factor before the bucket table grows
	rowIndexGrowthFactor   = 2    // growth factor on resize
	rowIndexCapacityFactor = 1.3  // capacity factor for the initial table size
)

// rowIndex groups rows by an encoded key. Keys are hashed with xxhash into
// buckets, and groups are numbered in the order their key was first seen.
type rowIndex struct {
	buckets [][]rowIndexEntry
	groups  [][]int
}

type rowIndexEntry struct {
	hash  uint64
	key   string
	group int
}

func newRowIndex(estimatedKeys int) *rowIndex {
	capacity := nextPowerOfTwo(int(float64(estimatedKeys) * rowIndexCapacityFactor))
	return &rowIndex{buckets: make([][]rowIndexEntry, capacity)}
}

// add records row under key and returns the group number of the key
func (ri *rowIndex) add(key []byte, row int) int {
	hash := xxhash.Sum64(key)
	bucket := hash & uint64(len(ri.buckets)-1)

	for _, entry := range ri.buckets[bucket] {
		if entry.hash == hash && entry.key == string(key) {
			ri.groups[entry.group] = append(ri.groups[entry.group], row)
			return entry.group
		}
	}

	group := len(ri.groups)
	ri.buckets[bucket] = append(ri.buckets[bucket], rowIndexEntry{hash: hash, key: string(key), group: group})
	ri.groups = append(ri.groups, []int{row})

	if float64(len(ri.groups)) > float64(len(ri.buckets))*rowIndexLoadFactor {
		ri.resize()
	}
	return group
}

// rows returns the rows recorded under key
func (ri *rowIndex) rows(key []byte) ([]int, bool) {
	hash := xxhash.Sum64(key)
	for _, entry := range ri.buckets[hash&uint64(len(ri.buckets)-1)] {
		if entry.hash == hash && entry.key == string(key) {
			return ri.groups[entry.group], true
		}
	}
	return nil, false
}

func (ri *rowIndex) resize() {
	buckets := make([][]rowIndexEntry, len(ri.buckets)*rowIndexGrowthFactor)
	mask := uint64(len(buckets) - 1)
	for _, bucket := range ri.buckets {
		for _, entry := range bucket {
			buckets[entry.hash&mask] = append(buckets[entry.hash&mask], entry)
		}
	}
	ri.buckets = buckets
}

// nextPowerOfTwo returns the next power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// Key tags keep values of different columns from running into each other
const (
	keyNull  byte = 0
	keyValue byte = 1
)

// appendRowKey appends the encoding of row across arrays to buf and reports
// whether any of the values was null
func appendRowKey(buf []byte, arrays []arrow.Array, row int) ([]byte, bool) {
	hasNull := false
	for _, arr := range arrays {
		if arr.IsNull(row) {
			buf = append(buf, keyNull)
			hasNull = true
			continue
		}
		buf = append(buf, keyValue)

		switch a := arr.(type) {
		case *array.String:
			v := a.Value(row)
			buf = binary.AppendUvarint(buf, uint64(len(v)))
			buf = append(buf, v...)
		case *array.Int64:
			buf = binary.BigEndian.AppendUint64(buf, uint64(a.Value(row)))
		case *array.Int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(a.Value(row)))
		case *array.Float64:
			v := a.Value(row)
			if v == 0 {
				v = 0 // fold -0 into +0
			}
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
		case *array.Boolean:
			if a.Value(row) {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case *array.Date32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(a.Value(row)))
		default:
			v := arr.ValueStr(row)
			buf = binary.AppendUvarint(buf, uint64(len(v)))
			buf = append(buf, v...)
		}
	}
	return buf, hasNull
}
