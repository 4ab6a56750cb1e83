package dma

import "github.com/de1soc/hps"

// PeriphID identifies one of the 32 peripheral request interfaces of the
// controller. The assignment is fixed per SoC family; the constants below
// follow the Cyclone V map, use [PeriphID.Name] for family aware display.
type PeriphID uint8

const (
	PeriphFPGA0 PeriphID = iota
	PeriphFPGA1
	PeriphFPGA2
	PeriphFPGA3
	PeriphFPGA4 // muxable to CAN0 IF1 via the system manager
	PeriphFPGA5 // muxable to CAN0 IF2
	PeriphFPGA6 // muxable to CAN1 IF1
	PeriphFPGA7 // muxable to CAN1 IF2
	PeriphI2C0TX
	PeriphI2C0RX
	PeriphI2C1TX
	PeriphI2C1RX
	PeriphI2C2TX
	PeriphI2C2RX
	PeriphI2C3TX
	PeriphI2C3RX
	PeriphSPI0MasterTX
	PeriphSPI0MasterRX
	PeriphSPI0SlaveTX
	PeriphSPI0SlaveRX
	PeriphSPI1MasterTX
	PeriphSPI1MasterRX
	PeriphSPI1SlaveTX
	PeriphSPI1SlaveRX
	PeriphQSPITX
	PeriphQSPIRX
	PeriphSTM
	PeriphReserved27
	PeriphUART0TX
	PeriphUART0RX
	PeriphUART1TX
	PeriphUART1RX
)

var periphNamesCycloneV = [NumPeriphs]string{
	"fpga0", "fpga1", "fpga2", "fpga3",
	"fpga4/can0_if1", "fpga5/can0_if2", "fpga6/can1_if1", "fpga7/can1_if2",
	"i2c0_tx", "i2c0_rx", "i2c1_tx", "i2c1_rx",
	"i2c2_tx", "i2c2_rx", "i2c3_tx", "i2c3_rx",
	"spi0m_tx", "spi0m_rx", "spi0s_tx", "spi0s_rx",
	"spi1m_tx", "spi1m_rx", "spi1s_tx", "spi1s_rx",
	"qspi_tx", "qspi_rx", "stm", "reserved",
	"uart0_tx", "uart0_rx", "uart1_tx", "uart1_rx",
}

// The Arria 10 HPS has no CAN controllers but a fifth I2C, which shifts the
// upper half of the table.
var periphNamesArria10 = [NumPeriphs]string{
	"fpga0", "fpga1", "fpga2", "fpga3",
	"fpga4", "fpga5", "fpga6", "fpga7",
	"i2c0_tx", "i2c0_rx", "i2c1_tx", "i2c1_rx",
	"i2c2_tx", "i2c2_rx", "i2c3_tx", "i2c3_rx",
	"i2c4_tx", "i2c4_rx",
	"spim0_tx", "spim0_rx", "spim1_tx", "spim1_rx",
	"spis0_tx", "spis0_rx", "spis1_tx", "spis1_rx",
	"qspi_tx", "qspi_rx",
	"uart0_tx", "uart0_rx", "uart1_tx", "uart1_rx",
}

// Name returns the request interface's peripheral name on the given SoC
// family.
func (id PeriphID) Name(v hps.Variant) string {
	if int(id) >= NumPeriphs {
		return "invalid"
	}
	if v == hps.Arria10 {
		return periphNamesArria10[id]
	}
	return periphNamesCycloneV[id]
}

// PeriphName returns the request interface's peripheral name on the
// controller's SoC family.
func (c *Controller) PeriphName(id PeriphID) string {
	return id.Name(c.variant)
}
