package bms

// MinCell 电压最低的电芯；无读数时 ok=false
func (c *CellInfo) MinCell() (CellReading, bool) {
	if c == nil || len(c.Cells) == 0 {
		return CellReading{}, false
	}
	m := c.Cells[0]
	for _, r := range c.Cells[1:] {
		if r.Volts < m.Volts {
			m = r
		}
	}
	return m, true
}

// MaxCell 电压最高的电芯；无读数时 ok=false
func (c *CellInfo) MaxCell() (CellReading, bool) {
	if c == nil || len(c.Cells) == 0 {
		return CellReading{}, false
	}
	m := c.Cells[0]
	for _, r := range c.Cells[1:] {
		if r.Volts > m.Volts {
			m = r
		}
	}
	return m, true
}

// Delta 最高与最低电芯压差（V）
func (c *CellInfo) Delta() float64 {
	lo, ok := c.MinCell()
	if !ok {
		return 0
	}
	hi, _ := c.MaxCell()
	return hi.Volts - lo.Volts
}

// TotalVolts 已上报电芯电压之和（V）
func (c *CellInfo) TotalVolts() float64 {
	if c == nil {
		return 0
	}
	var sum float64
	for _, r := range c.Cells {
		sum += r.Volts
	}
	return sum
}
