package engine

// resources is Engine viewed through the narrow surface the sync reply
// path (§4.4) needs. The conversion (*resources)(e) is free — it shares
// Engine's underlying struct — and keeps syncproto.Resources from ever
// seeing the rest of Engine's API.
type resources Engine

func (r *resources) Height() uint64 {
	return (*Engine)(r).head.Height()
}

func (r *resources) GenesisBlockBytes() ([]byte, bool) {
	hash, err := (*Engine)(r).Blocks.GetHashAtHeight(0)
	if err != nil {
		return nil, false
	}
	block, err := (*Engine)(r).Blocks.GetBlock(hash)
	if err != nil {
		return nil, false
	}
	data, err := block.Encode()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (r *resources) HashAtHeight(height uint64) ([32]byte, bool) {
	hash, err := (*Engine)(r).Blocks.GetHashAtHeight(height)
	if err != nil {
		return [32]byte{}, false
	}
	return hash, true
}

func (r *resources) TransactionBytesAtHash(hash [32]byte) ([]byte, bool) {
	e := (*Engine)(r)
	if tx, ok := e.mempool.Get(hash); ok {
		data, err := tx.Encode()
		if err != nil {
			return nil, false
		}
		return data, true
	}
	tx, err := e.Txes.Get(hash)
	if err != nil {
		return nil, false
	}
	data, err := tx.Encode()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (r *resources) BlockBytesAtHash(hash [32]byte) ([]byte, bool) {
	block, err := (*Engine)(r).Blocks.GetBlock(hash)
	if err != nil {
		return nil, false
	}
	data, err := block.Encode()
	if err != nil {
		return nil, false
	}
	return data, true
}
