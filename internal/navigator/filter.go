package navigator

// Deadzone は生のオフセットにデッドゾーンと感度を適用する。
// |raw| <= threshold なら 0、それ以外は raw / divisor（0方向への切り捨て）を返す。
// divisor は正の値でなければならない。
func Deadzone(raw, threshold, divisor int32) int32 {
	if raw <= threshold && raw >= -threshold {
		return 0
	}
	return raw / divisor
}

// AxisSample はスティックのゼロ点からのオフセット
type AxisSample struct {
	Horizontal int32
	Vertical   int32
}

// filterAxes は両軸に同じデッドゾーンと感度を適用する
func filterAxes(a AxisSample, threshold, divisor int32) (h, v int32) {
	return Deadzone(a.Horizontal, threshold, divisor), Deadzone(a.Vertical, threshold, divisor)
}
