package event

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn      = 0x00 // 同期イベント
	Key      = 0x01 // キーイベント
	Rel      = 0x02 // 相対座標イベント
	Abs      = 0x03 // 絶対座標イベント
	RelX     = 0x0  // X軸の相対移動
	RelY     = 0x1  // Y軸の相対移動
	RelWheel = 0x8  // ホイールの相対移動

	AbsX  = 0x00 // X軸の絶対座標
	AbsY  = 0x01 // Y軸の絶対座標
	AbsRx = 0x03 // 右スティックX軸
	AbsRy = 0x04 // 右スティックY軸

	SynReport = 0 // イベント報告の同期
)

// マウスボタンとジョイスティックボタン
const (
	BtnLeft    = 0x110 // マウス左ボタン
	BtnRight   = 0x111 // マウス右ボタン
	BtnMiddle  = 0x112 // マウス中ボタン
	BtnTrigger = 0x120 // ジョイスティックのトリガー
	BtnThumb   = 0x121
	BtnThumb2  = 0x122
	BtnTop     = 0x123
	BtnSouth   = 0x130 // ゲームパッドのAボタン
	BtnEast    = 0x131
	BtnWest    = 0x134
	BtnThumbL  = 0x13d // 左スティックの押し込み
)

// キーボードのキー
const (
	KeyEsc       = 1
	KeyLeftShift = 42
	KeyLeftCtrl  = 29
	KeyLeftAlt   = 56
	KeyF6        = 64
	KeyHome      = 102

	KeyMax = 0x2ff // キーコードの最大値
)
