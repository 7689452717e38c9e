package services

import (
	"testing"
	"time"

	"github.com/raffleworks/raffle-backend/pkg/chain"
	"github.com/stretchr/testify/assert"
)

func TestWinnerIndexFixedVectors(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		sold  uint64
		block chain.Block
		want  uint64
	}{
		{
			name:  "no tickets sold",
			total: 10,
			sold:  0,
			block: chain.Block{Height: 5, Time: time.Unix(1700000000, 0)},
			want:  5,
		},
		{
			name:  "one ticket sold",
			total: 10,
			sold:  1,
			block: chain.Block{Height: 5, Time: time.Unix(1700000000, 0)},
			want:  6,
		},
		{
			name:  "partially sold large game",
			total: 100,
			sold:  57,
			block: chain.Block{Height: 123456, Time: time.Unix(1650000000, 123456789)},
			want:  39,
		},
		{
			name:  "single ticket game always draws index zero",
			total: 1,
			sold:  1,
			block: chain.Block{Height: 987654321, Time: time.Unix(1699999999, 999999999)},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WinnerIndex(tt.total, tt.sold, tt.block))
		})
	}
}

func TestWinnerIndexDeterministic(t *testing.T) {
	block := chain.Block{Height: 42424242, Time: time.Unix(1712345678, 555555555)}
	first := WinnerIndex(777, 123, block)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, WinnerIndex(777, 123, block))
	}
}

func TestWinnerIndexRange(t *testing.T) {
	totals := []uint64{1, 2, 7, 10, 100, 999, 65536}
	for _, total := range totals {
		for height := uint64(1); height < 200; height += 13 {
			block := chain.Block{
				Height: height,
				Time:   time.Unix(1700000000+int64(height)*7, int64(height)*31),
			}
			index := WinnerIndex(total, total/2, block)
			assert.Less(t, index, total, "total=%d height=%d", total, height)
		}
	}
}
