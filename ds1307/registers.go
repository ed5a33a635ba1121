package ds1307

const (
	Address  = 0x68 // I2C address for DS1307, 0xD0 to write and 0xD1 to read
	Seconds  = 0x00 // Seconds, bit 7 is the clock halt flag
	Minutes  = 0x01 // Minutes
	Hours    = 0x02 // Hours, bit 6 selects 12-hour mode
	Weekday  = 0x03 // Day of the week, 1-7
	Date     = 0x04 // Day of the month, first of the date registers
	Month    = 0x05 // Month
	Year     = 0x06 // Year within the century
	Control  = 0x07 // Square wave output control
	RAMStart = 0x08 // First byte of battery-backed RAM
	RAMSize  = 56   // Bytes of RAM, up to register 0x3F

	ClockHalt = 0x80 // Seconds register bit that stops the oscillator
	Mode12    = 0x40 // Hours register bit that selects 12-hour mode
)
