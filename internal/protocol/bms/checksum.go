package bms

// Checksum 计算校验和：所有字节累加，byte 溢出自动丢弃高位（sum mod 256）
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// VerifyChecksum 校验带尾部校验字节的数据，返回期望值与实际值
// dataWithChecksum: 最后一个字节为校验和
func VerifyChecksum(dataWithChecksum []byte) (expected, received byte, ok bool) {
	if len(dataWithChecksum) < 1 {
		return 0, 0, false
	}
	pos := len(dataWithChecksum) - 1
	expected = Checksum(dataWithChecksum[:pos])
	received = dataWithChecksum[pos]
	return expected, received, expected == received
}
