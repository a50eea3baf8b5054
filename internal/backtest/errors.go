package backtest

import "errors"

var (
	// ErrRunInProgress 表示已有回测在执行，本次请求被丢弃。
	ErrRunInProgress = errors.New("backtest already running")
	// ErrInsufficientData 表示可用日线少于最小要求，上一次结果保持不变。
	ErrInsufficientData = errors.New("insufficient daily bars")
	// ErrHistoryDisabled 表示未配置历史存储。
	ErrHistoryDisabled = errors.New("backtest history disabled")
)
