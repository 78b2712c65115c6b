package tasks

import "encoding/json"

// 任务类型常量
const (
	// TypePresenceReconcile 周期性地将 Redis 在线镜像收敛到注册表的真实状态
	TypePresenceReconcile = "presence:reconcile"
)

// PresenceReconcilePayload 是在线对账任务的载荷。
// 任务本身不携带数据（对账总是基于当前注册表快照），保留结构体便于将来扩展。
type PresenceReconcilePayload struct{}

// NewPresenceReconcileTask 构造在线对账任务的序列化载荷
func NewPresenceReconcileTask() ([]byte, error) {
	return json.Marshal(PresenceReconcilePayload{})
}
