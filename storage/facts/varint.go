package facts

import "github.com/intellect4all/triplecore/storage/bptree"

func putVarint32(buf []byte, v uint32) int {
	return bptree.PutUvarint(buf, uint64(v))
}

func getVarint32(buf []byte) (uint32, int) {
	v, n := bptree.Uvarint(buf)
	return uint32(v), n
}

func varintSize32(v uint32) int {
	return bptree.VarintSize(uint64(v))
}

func varint3Size(a, b, c uint32) int {
	return varintSize32(a) + varintSize32(b) + varintSize32(c)
}
