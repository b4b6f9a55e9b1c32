package database

import (
	"github.com/drummonds/pdfcanvas/engine/channel"
	"github.com/drummonds/pdfcanvas/engine/codec"
)

func channelInsert(payload codec.Payload, width, height float64, index int) channel.Message {
	return channel.NewInsertImage(payload, width, height, index, "")
}
