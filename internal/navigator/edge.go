package navigator

// Button はスナップショット内のボタン位置
type Button int

const (
	Button1 Button = iota // マウス左ボタン
	Button2               // モード切り替え
	Button3               // ESCキー
	Click                 // ジョイスティックの押し込み
)

// NumButtons はボタンの総数
const NumButtons = 4

func (b Button) String() string {
	switch b {
	case Button1:
		return "B1"
	case Button2:
		return "B2"
	case Button3:
		return "B3"
	case Click:
		return "SEL"
	}
	return "B?"
}

// Edge はボタンレベルの遷移
type Edge int

const (
	EdgeNone Edge = iota
	EdgePressed
	EdgeReleased
)

// ButtonState は前回サイクルのレベルを保持し、遷移を一度だけ報告する
type ButtonState struct {
	wasPressed bool
}

// Update は現在のレベルを取り込み、押下・解放の遷移を返す。
// レベルが変わらない間は EdgeNone を返し続ける。
func (b *ButtonState) Update(pressed bool) Edge {
	switch {
	case pressed && !b.wasPressed:
		b.wasPressed = true
		return EdgePressed
	case !pressed && b.wasPressed:
		b.wasPressed = false
		return EdgeReleased
	}
	return EdgeNone
}

// Pressed はラッチされているレベルを返す
func (b *ButtonState) Pressed() bool {
	return b.wasPressed
}
