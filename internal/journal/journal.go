// Package journal persists terminal order records to a local pebble
// store for audit. The engine never reads it back on the hot path; it is
// a write-behind archive keyed by order id.
package journal

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/cockroachdb/pebble"

	"vidar/internal/common"
)

var ErrNotFound = errors.New("no journal entry for order")

type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records a terminal order. Re-appending the same id overwrites,
// which is harmless: terminal records never change again.
func (j *Journal) Append(order common.Order) error {
	return j.db.Set(keyFor(order.ID), encodeOrder(order), pebble.Sync)
}

// Get returns the journalled record for an order id.
func (j *Journal) Get(id uint64) (common.Order, error) {
	val, closer, err := j.db.Get(keyFor(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return common.Order{}, ErrNotFound
		}
		return common.Order{}, err
	}
	defer closer.Close()

	return decodeOrder(id, val)
}

// Scan visits every journalled record in ascending id order. The visitor
// returning an error stops the scan.
func (j *Journal) Scan(visit func(order common.Order) error) error {
	iter, err := j.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id := binary.BigEndian.Uint64(iter.Key())
		order, err := decodeOrder(id, iter.Value())
		if err != nil {
			return err
		}
		if err := visit(order); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// binary layout:
// [status:1][side:1][createdUnixNano:8][ownerLen:2][baseLen:2][quoteLen:2]
// [owner][base bytes][quote bytes]
const headerLen = 1 + 1 + 8 + 2 + 2 + 2

func encodeOrder(o common.Order) []byte {
	owner := []byte(o.Owner)
	base := o.BaseAmount.Bytes()
	quote := o.QuoteAmount.Bytes()

	buf := make([]byte, headerLen+len(owner)+len(base)+len(quote))
	buf[0] = byte(o.Status)
	buf[1] = byte(o.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(o.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(owner)))
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(base)))
	binary.BigEndian.PutUint16(buf[14:16], uint16(len(quote)))

	offset := headerLen
	offset += copy(buf[offset:], owner)
	offset += copy(buf[offset:], base)
	copy(buf[offset:], quote)
	return buf
}

func decodeOrder(id uint64, b []byte) (common.Order, error) {
	if len(b) < headerLen {
		return common.Order{}, errors.New("journal entry too short")
	}

	ownerLen := int(binary.BigEndian.Uint16(b[10:12]))
	baseLen := int(binary.BigEndian.Uint16(b[12:14]))
	quoteLen := int(binary.BigEndian.Uint16(b[14:16]))
	if len(b) != headerLen+ownerLen+baseLen+quoteLen {
		return common.Order{}, errors.New("journal entry length mismatch")
	}

	offset := headerLen
	owner := string(b[offset : offset+ownerLen])
	offset += ownerLen
	base := new(big.Int).SetBytes(b[offset : offset+baseLen])
	offset += baseLen
	quote := new(big.Int).SetBytes(b[offset : offset+quoteLen])

	return common.Order{
		ID:          id,
		Owner:       owner,
		BaseAmount:  base,
		QuoteAmount: quote,
		Side:        common.Side(b[1]),
		Status:      common.Status(b[0]),
		CreatedAt:   time.Unix(0, int64(binary.BigEndian.Uint64(b[2:10]))),
	}, nil
}
