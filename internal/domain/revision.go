package domain

import "time"

// 修订动作
const (
	RevisionCreate = "create"
	RevisionUpdate = "update"
	RevisionDelete = "delete"
)

// Revision 审计修订记录，在每个变更事务内写入，
// 保存受影响记录的 JSON 快照。
type Revision struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OperatorID string    `json:"operatorId" gorm:"type:varchar(36);index"`
	Action     string    `json:"action" gorm:"type:varchar(20)"`
	Entity     string    `json:"entity" gorm:"type:varchar(50);index:idx_revisions_entity"`
	EntityID   string    `json:"entityId" gorm:"type:varchar(36);index:idx_revisions_entity"`
	Snapshot   string    `json:"snapshot" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt"`
}
