package match

import (
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
	"github.com/Zaxis018/cbs-match-bot/internal/weighttable"
)

// WeightResolver produces the weight vector for a condition set.
type WeightResolver interface {
	Resolve(e entity.Type, conds []entity.Field) (weighttable.Vector, error)
}

// DatasetProvider hands out the reference dataset for an entity type.
type DatasetProvider interface {
	Dataset(e entity.Type) *refdata.Dataset
}
