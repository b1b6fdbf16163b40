package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/bms-monitor/internal/logging"
	"github.com/taoyao-code/bms-monitor/internal/protocol/bms"
)

// Driver 驱动单个设备完成固定的命令序列并消费其通知流
//
// 流程：连接 -> 订阅 -> 设备信息命令 -> 间隔 -> 电芯信息命令 -> 观察窗口 -> 退订 -> 断开
// 会话期间收到的每一帧都经过 bms.ClassifyAndParse，不做请求/响应匹配。
type Driver struct {
	connector Connector
	config    Config
}

// NewDriver 创建 Driver
func NewDriver(connector Connector, opts ...Option) *Driver {
	if connector == nil {
		panic("connector cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{connector: connector, config: cfg}
}

// Run 执行一次设备会话。传输层失败返回 *TransportError，只影响本设备。
// 返回的 Report 总是非 nil。
func (d *Driver) Run(ctx context.Context, dev Device) (*Report, error) {
	rep := &Report{
		SessionID: uuid.New().String(),
		Device:    dev,
		StartedAt: d.config.Clock(),
		Frames:    make(map[bms.Kind]int),
	}
	log := d.logger(dev).With(zap.String("session_id", rep.SessionID))

	err := d.run(ctx, log, dev, rep)
	rep.EndedAt = d.config.Clock()
	rep.Err = err
	if err != nil {
		log.Error("session failed", zap.Error(err), zap.Duration("elapsed", rep.Duration()))
		return rep, err
	}
	log.Info("session finished",
		zap.Duration("elapsed", rep.Duration()),
		zap.Int("device_info_frames", rep.Frames[bms.KindDeviceInfo]),
		zap.Int("cell_info_frames", rep.Frames[bms.KindCellInfo]),
		zap.Int("checksum_mismatches", rep.ChecksumMismatches))
	return rep, nil
}

func (d *Driver) run(ctx context.Context, log *zap.Logger, dev Device, rep *Report) (err error) {
	conn, err := d.connector.Connect(ctx, dev)
	if err != nil {
		return &TransportError{Device: dev, Op: "connect", Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn("close connection failed", zap.Error(cerr))
			if err == nil {
				err = &TransportError{Device: dev, Op: "close", Err: cerr}
			}
		}
	}()

	frames, err := conn.Subscribe(ctx)
	if err != nil {
		return &TransportError{Device: dev, Op: "subscribe", Err: err}
	}
	log.Info("connected and notification started")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.consume(ctx, log, dev, frames, stop, rep)
	}()

	seqErr := d.sequence(ctx, log, dev, conn)

	uerr := conn.Unsubscribe()
	close(stop)
	<-done

	if seqErr != nil {
		if uerr != nil {
			log.Warn("unsubscribe failed", zap.Error(uerr))
		}
		return seqErr
	}
	if uerr != nil {
		return &TransportError{Device: dev, Op: "unsubscribe", Err: uerr}
	}
	log.Info("notification stopped")
	return nil
}

// sequence 发送两条命令并等待固定时长；等待窗口是硬截止
func (d *Driver) sequence(ctx context.Context, log *zap.Logger, dev Device, conn Conn) error {
	if err := d.send(ctx, log, dev, conn, bms.CmdDeviceInfo); err != nil {
		return err
	}
	if err := wait(ctx, d.config.SettleInterval); err != nil {
		return fmt.Errorf("settle wait: %w", err)
	}
	if err := d.send(ctx, log, dev, conn, bms.CmdCellInfo); err != nil {
		return err
	}
	if err := wait(ctx, d.config.ObserveWindow); err != nil {
		return fmt.Errorf("observe window: %w", err)
	}
	return nil
}

func (d *Driver) send(ctx context.Context, log *zap.Logger, dev Device, conn Conn, cmd byte) error {
	frame := bms.BuildCommand(cmd).Bytes()
	if err := conn.Write(ctx, frame); err != nil {
		return &TransportError{Device: dev, Op: "write " + bms.CommandName(cmd), Err: err}
	}
	log.Info("command sent",
		zap.String("cmd", bms.CommandName(cmd)),
		zap.String("frame", hex.EncodeToString(frame)))
	return nil
}

// consume 按到达顺序处理通知；stop 关闭后把已到达的帧处理完再退出
func (d *Driver) consume(ctx context.Context, log *zap.Logger, dev Device, frames <-chan []byte, stop <-chan struct{}, rep *Report) {
	for {
		select {
		case raw, ok := <-frames:
			if !ok {
				return
			}
			d.handle(ctx, log, dev, raw, rep)
		case <-stop:
			for {
				select {
				case raw, ok := <-frames:
					if !ok {
						return
					}
					d.handle(ctx, log, dev, raw, rep)
				default:
					return
				}
			}
		}
	}
}

func (d *Driver) handle(ctx context.Context, log *zap.Logger, dev Device, raw []byte, rep *Report) {
	res := bms.ClassifyAndParse(raw)
	rep.record(res)
	if res.Kind == bms.KindIgnored {
		log.Debug("notification ignored", zap.Int("len", len(raw)))
		return
	}

	log.Info("notification received", zap.String("frame", hex.EncodeToString(raw)), zap.Stringer("result", res))
	logResult(log, res)

	if d.config.Handler != nil {
		d.config.Handler.HandleResult(ctx, rep.SessionID, dev, res)
	}
}

func logResult(log *zap.Logger, res bms.Result) {
	switch res.Kind {
	case bms.KindDeviceInfo:
		di := res.DeviceInfo
		log.Info("device info parsed",
			zap.String("device_name", di.Name),
			zap.String("serial_number", di.SerialNumber),
			zap.String("firmware_version", di.FirmwareVersion),
			zap.String("hardware_version", di.HardwareVersion),
			zap.String("other_info", hex.EncodeToString(di.Vendor)))
		var ce *bms.ChecksumError
		if errors.As(res.Err, &ce) {
			log.Warn("invalid checksum",
				zap.Uint8("calculated", ce.Expected),
				zap.Uint8("received", ce.Received))
		} else {
			log.Info("checksum valid")
		}
	case bms.KindCellInfo:
		ci := res.CellInfo
		log.Info("cell info parsed",
			zap.Int("cells_with_voltage", ci.Count),
			zap.Int("declared", ci.Declared),
			zap.String("total_volts", fmt.Sprintf("%.3f", ci.TotalVolts())),
			zap.String("delta_volts", fmt.Sprintf("%.3f", ci.Delta())))
		for _, c := range ci.Cells {
			log.Info("cell voltage", zap.Int("cell", c.Index), zap.String("volts", fmt.Sprintf("%.3f", c.Volts)))
		}
	case bms.KindUnknown:
		log.Warn("unknown frame type", zap.String("type", res.Type.String()))
	case bms.KindMalformed:
		log.Warn("malformed frame dropped", zap.Error(res.Err))
	}
}

func (d *Driver) logger(dev Device) *zap.Logger {
	tag := d.config.DeviceTag
	if tag == "" {
		tag = dev.Name
	}
	return logging.ForDevice(d.config.Logger, tag, dev.Address)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
