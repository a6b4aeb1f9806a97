package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateShiftWindow(t *testing.T) {
	assert.NoError(t, ValidateShiftWindow("09:00:00", "13:00:00"))

	assert.Error(t, ValidateShiftWindow("9:00", "13:00:00"))
	assert.Error(t, ValidateShiftWindow("09:00:00", "下午一点"))
	assert.Error(t, ValidateShiftWindow("13:00:00", "09:00:00"))
	assert.Error(t, ValidateShiftWindow("09:00:00", "09:00:00"))
}
