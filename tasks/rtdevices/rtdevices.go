// Package rtdevices exercises every device kind from a realtime process.
package rtdevices

import (
	"fmt"
	"time"

	"coopos/kernel"
)

const pause = 50 * time.Millisecond

type Task struct {
	Random string
	File   string
	Rounds int
}

func New() *Task {
	return &Task{Random: "random 100", File: "file data.dat"}
}

func (t *Task) Name() string { return "realtime" }

func (t *Task) Run(ctx *kernel.Context) {
	log := ctx.Log()
	for round := 0; t.Rounds == 0 || round < t.Rounds; round++ {
		rnd := ctx.Open(t.Random)
		file := ctx.Open(t.File)

		if data := ctx.Read(rnd, 50); data != nil {
			log.Debugf("realtime: random % X", data)
		}
		if data := ctx.Read(file, 50); data != nil {
			log.Debugf("realtime: file %q", data)
		}
		ctx.Write(file, []byte("Hello World"))
		ctx.Seek(rnd, 20)
		ctx.Seek(file, 20)
		ctx.Close(rnd)
		ctx.Close(file)

		if con := ctx.Open("console"); con >= 0 {
			ctx.Write(con, []byte(fmt.Sprintf("realtime: round %d\n", round)))
			ctx.Close(con)
		}

		ctx.Cooperate()
		ctx.Sleep(pause)
	}
}
