package avr

// TWI (two-wire serial interface) control register bits.
const (
	TWIE  = 0 // TWI interrupt enable
	TWEN  = 2 // TWI enable
	TWWC  = 3 // write collision flag
	TWSTO = 4 // stop condition
	TWSTA = 5 // start condition
	TWEA  = 6 // enable acknowledge
	TWINT = 7 // TWI interrupt flag, cleared by writing one
)

// TWI status codes in the upper five bits of TWSR (master modes).
const (
	TWSRMask       = 0xF8
	StatusStart    = 0x08 // start transmitted
	StatusRestart  = 0x10 // repeated start transmitted
	StatusSLAWAck  = 0x18 // SLA+W transmitted, ACK received
	StatusSLAWNack = 0x20 // SLA+W transmitted, NACK received
	StatusDataAck  = 0x28 // data transmitted, ACK received
	StatusDataNack = 0x30 // data transmitted, NACK received
	StatusArbLost  = 0x38 // arbitration lost
	StatusSLARAck  = 0x40 // SLA+R transmitted, ACK received
	StatusSLARNack = 0x48 // SLA+R transmitted, NACK received
	StatusRecvAck  = 0x50 // data received, ACK returned
	StatusRecvNack = 0x58 // data received, NACK returned
)

// EEPROM control register bits. Newer parts call EEWE/EEMWE EEPE/EEMPE; the
// positions are the same.
const (
	EERE  = 0 // read enable
	EEWE  = 1 // write enable, cleared by hardware when the write cycle ends
	EEMWE = 2 // master write enable, self-clears four cycles after being set
	EERIE = 3 // ready interrupt enable
)

// ADC control and status register A bits.
const (
	ADPS0 = 0 // prescaler select
	ADIE  = 3 // interrupt enable
	ADIF  = 4 // conversion complete flag, cleared by writing one
	ADATE = 5 // auto trigger enable
	ADSC  = 6 // start conversion
	ADEN  = 7 // ADC enable
)
