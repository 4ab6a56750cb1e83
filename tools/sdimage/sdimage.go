// Package sdimage builds bootable SD card images for the DE1-SoC and Arria
// 10 boards. The BootROM expects the preloader in a raw partition of MBR
// type 0xa2, the FAT partition carries U-Boot, the FPGA bitstream and the
// application binaries.
package sdimage

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/partition/mbr"
)

const usageString = `Bootable SD card image builder.

Usage: %s [flags] <imagefile> [payload files...]

Payload files are copied into the root of the FAT partition.

`

var (
	flags = flag.NewFlagSet("sdimage", flag.ExitOnError)

	preloader = flags.String("preloader", "", "preloader image for the raw boot partition")
	size      = flags.Int64("size", 64, "image size in MiB")
	label     = flags.String("label", "DE1SOC", "FAT volume label")
)

// Partition geometry in 512 byte sectors. The preloader partition holds 4
// redundant preloader images of 256 KiB each, per the BootROM search order.
const (
	sectorSize   = 512
	bootStart    = 2048 // 1 MiB alignment
	bootSectors  = 4 * 256 * 1024 / sectorSize
	fatStart     = bootStart + bootSectors
	preloaderMBR = 0xa2
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "sdimage")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() < 1 || *preloader == "" {
		flags.Usage()
		os.Exit(1)
	}
	imgfile := flags.Arg(0)
	payload := flags.Args()[1:]

	img, err := diskfs.Create(imgfile, *size<<20, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		log.Fatalln(err)
	}

	totalSectors := uint32(*size << 20 / sectorSize)
	if totalSectors <= fatStart {
		log.Fatalln("image too small for partition layout")
	}
	table := &mbr.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		Partitions: []*mbr.Partition{
			{
				Type:  preloaderMBR,
				Start: bootStart,
				Size:  bootSectors,
			},
			{
				Type:     mbr.Fat32LBA,
				Bootable: true,
				Start:    fatStart,
				Size:     totalSectors - fatStart,
			},
		},
	}
	err = img.Partition(table)
	if err != nil {
		log.Fatalln("partition:", err)
	}

	err = writePreloader(img, *preloader)
	if err != nil {
		log.Fatalln("preloader:", err)
	}

	fs, err := img.CreateFilesystem(disk.FilesystemSpec{
		Partition:   2,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: *label,
	})
	if err != nil {
		log.Fatalln("mkfs:", err)
	}
	for _, name := range payload {
		err = copyIn(fs, name)
		if err != nil {
			log.Fatalln("copy payload:", err)
		}
	}
}

// writePreloader replicates the preloader image 4 times into the raw boot
// partition, the BootROM falls through corrupted copies.
func writePreloader(img *disk.Disk, name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	if len(data) > 256*1024 {
		return fmt.Errorf("%s: larger than a 256 KiB preloader slot", name)
	}
	slot := make([]byte, 256*1024)
	copy(slot, data)
	all := make([]byte, 0, 4*len(slot))
	for i := 0; i < 4; i++ {
		all = append(all, slot...)
	}
	_, err = img.WritePartitionContents(1, bytes.NewReader(all))
	return err
}

func copyIn(fs filesystem.FileSystem, name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fs.OpenFile("/"+filepath.Base(name), os.O_CREATE|os.O_RDWR)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
