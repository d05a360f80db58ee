package gpio

// Physical base addresses of the GPIO register block.
const (
	BCM2837Base int64 = 0x3F200000 // Raspberry Pi 2/3
	BCM2711Base int64 = 0xFE200000 // Raspberry Pi 4
)

// blockSize is the length of the mapping; the GPIO block fits in one page.
const blockSize = 4096

const (
	fselRegs       = 6
	fselPinsPerReg = 10
	fselBits       = 3
	fselMask       = 0x7
	fselOutput     = 0x1
)

// Registers is the layout of the BCM2835-compatible GPIO block, starting at
// the GPIO base address. Field offsets match the peripheral datasheet.
type Registers struct {
	FSel [fselRegs]uint32 // 0x00 GPFSEL0-5, 3 bits per pin
	_    uint32           // 0x18
	Set  [2]uint32        // 0x1C GPSET0-1, write 1 to drive high
	_    uint32           // 0x24
	Clr  [2]uint32        // 0x28 GPCLR0-1, write 1 to drive low
	_    uint32           // 0x30
	Lev  [2]uint32        // 0x34 GPLEV0-1, read only
}

// SoCBase returns the GPIO base for a SoC name, or false if it is unknown.
func SoCBase(soc string) (int64, bool) {
	switch soc {
	case "bcm2711":
		return BCM2711Base, true
	case "bcm2837":
		return BCM2837Base, true
	default:
		return 0, false
	}
}
