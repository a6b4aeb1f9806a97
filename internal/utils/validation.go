package utils

import (
	"errors"
	"fmt"
	"time"
)

// ValidateShiftWindow 检查班次时间是否为合法的 15:04:05 格式且结束晚于开始
func ValidateShiftWindow(startTime string, endTime string) error {
	start, err := time.Parse("15:04:05", startTime)
	if err != nil {
		return fmt.Errorf("班次的开始时间格式错误")
	}
	end, err := time.Parse("15:04:05", endTime)
	if err != nil {
		return fmt.Errorf("班次的结束时间格式错误")
	}
	if !end.After(start) {
		return errors.New("班次的结束时间必须晚于开始时间")
	}
	return nil
}
