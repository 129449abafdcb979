// Package stackless 实现了解释器的协作式任务调度核心（tasklet 调度器）。
//
// 本文件实现调度状态的调试输出。
package stackless

import "github.com/segmentio/encoding/json"

// StateDump 调度状态快照（用于调试）
type StateDump struct {
	Phase          string  `json:"phase"`
	Current        int64   `json:"current"`
	Main           int64   `json:"main"`
	RunQueue       []int64 `json:"runQueue"`
	RunCount       int32   `json:"runCount"`
	Serial         int64   `json:"serial"`
	SerialLastJump int64   `json:"serialLastJump"`
	Ticker         int64   `json:"ticker"`
	Interval       int64   `json:"interval"`
	NestingLevel   int     `json:"nestingLevel"`
	SwitchTrapped  bool    `json:"switchTrapped"`
	SchedLockHeld  bool    `json:"schedLockHeld"`
	Interrupted    int64   `json:"interrupted"`
	PendingRelease int     `json:"pendingRelease"`
}

// Snapshot 采集当前调度状态快照
func (ts *ThreadState) Snapshot() StateDump {
	currentID := int64(-1)
	if c := ts.currentTasklet(); c != nil {
		currentID = c.ID
	}
	mainID := int64(-1)
	if ts.main != nil {
		mainID = ts.main.ID
	}
	interruptedID := int64(-1)
	if ts.interrupted != nil {
		interruptedID = ts.interrupted.ID
	}

	queueIDs := make([]int64, 0, len(ts.runQueue))
	for _, t := range ts.runQueue {
		queueIDs = append(queueIDs, t.ID)
	}

	return StateDump{
		Phase:          ts.phase.String(),
		Current:        currentID,
		Main:           mainID,
		RunQueue:       queueIDs,
		RunCount:       ts.runcount.Load(),
		Serial:         ts.serial.Load(),
		SerialLastJump: ts.SerialLastJump(),
		Ticker:         ts.ticker.Load(),
		Interval:       ts.interval.Load(),
		NestingLevel:   ts.nestingLevel,
		SwitchTrapped:  ts.SwitchTrapped(),
		SchedLockHeld:  ts.SchedLockHeld(),
		Interrupted:    interruptedID,
		PendingRelease: ts.PendingReleases(),
	}
}

// DumpState 输出调度器状态（用于调试）
func (ts *ThreadState) DumpState() map[string]interface{} {
	d := ts.Snapshot()
	return map[string]interface{}{
		"phase":          d.Phase,
		"current":        d.Current,
		"main":           d.Main,
		"runQueue":       d.RunQueue,
		"runCount":       d.RunCount,
		"serial":         d.Serial,
		"serialLastJump": d.SerialLastJump,
		"nestingLevel":   d.NestingLevel,
		"interrupted":    d.Interrupted,
	}
}

// DumpJSON 以 JSON 形式输出调度器状态
func (ts *ThreadState) DumpJSON() ([]byte, error) {
	return json.Marshal(ts.Snapshot())
}
