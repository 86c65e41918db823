package navigator

// PressTimer はジョイスティック押し込みの押下時間を計測する。
// 時刻はミリ秒の uint32 で、桁あふれしても差分は正しく計算される。
type PressTimer struct {
	pressedAt uint32
	armed     bool
}

// Press は押下時刻を記録して計測を開始する
func (p *PressTimer) Press(now uint32) {
	p.pressedAt = now
	p.armed = true
}

// Release は計測を終了し、threshold 未満の短押しだったかを返す。
// 計測中でなければ ok は false になる。
func (p *PressTimer) Release(now, threshold uint32) (short, ok bool) {
	if !p.armed {
		return false, false
	}
	p.armed = false
	return now-p.pressedAt < threshold, true
}

// Armed は押下中（計測中）かどうかを返す
func (p *PressTimer) Armed() bool {
	return p.armed
}
