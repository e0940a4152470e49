package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/trantorian/nftminter/logger"
)

func Test_logger_for_tests(t *testing.T) {
	t.Skip("this test is only for visually checking the output")

	t.Run("debug", func(t *testing.T) {
		l := New(t)
		l.Error("minting failed", logger.Error(errors.New("what now")))
		l.Warn("submission rejected", logger.TxID("TXID"))
		l.Info("asset created", logger.AssetID(42))
		l.Debug("polling pending transaction")
		t.Error("calling t.Error causes the test to fail")
	})

	t.Run("info", func(t *testing.T) {
		l := NewLvl(t, slog.LevelInfo)
		l.Info("so you know")
		l.Debug("this shouldn't show up in the log")
		t.Fail()
	})

	t.Run("colors disabled", func(t *testing.T) {
		t.Setenv("NFTMINTER_TEST_LOG_NO_COLORS", "true")
		l := New(t)
		l.Error("now thats really bad", logger.Error(errors.New("what now")))
		t.Fail()
	})
}
