package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BlockType string

const (
	BlockTypeVacation BlockType = "vacation"
	BlockTypeHoliday  BlockType = "holiday"
	BlockTypeDayOff   BlockType = "day_off"
	BlockTypeOther    BlockType = "other"
)

func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeVacation, BlockTypeHoliday, BlockTypeDayOff, BlockTypeOther:
		return true
	}
	return false
}

// Block is an absolute blackout period. It overrides weekly availability.
type Block struct {
	bun.BaseModel `bun:"table:blocks"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	StartTime time.Time `bun:"start_time,notnull"`
	EndTime   time.Time `bun:"end_time,notnull"`
	Type      BlockType `bun:"type,notnull"`
	Reason    string    `bun:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (b *Block) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (b Block) Interval() TimeInterval {
	return TimeInterval{Start: b.StartTime, End: b.EndTime}
}
