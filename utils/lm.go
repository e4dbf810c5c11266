package utils

import "sync"

// LoopMode is an universal working mode.
// If a struct has a LoopMode, its working logic runs in one or many
// long-term goroutines. The struct should call StartWorking() in its
// setup function and Stop() in its cleanup function.
// Each long-term goroutine should work like:
/*
	lm.Add()
	defer lm.Done()
	for {
		select {
		case <-lm.D:
			return
		// case :...other goroutine logic
		}
	}
*/
type LoopMode struct {
	working     bool
	routinesNum int
	waitGroup   sync.WaitGroup
	D           chan struct{}
}

// NewLoop returns a LoopMode; routines is the number of long-term
// goroutines (must be >0)
func NewLoop(routines int) *LoopMode {
	if routines <= 0 {
		return nil
	}
	return &LoopMode{
		routinesNum: routines,
		D:           make(chan struct{}, routines),
	}
}

func (l *LoopMode) StartWorking() {
	l.working = true
}

// Stop stops the long-term goroutines. If it's not working, returns
// false; otherwise returns true.
func (l *LoopMode) Stop() bool {
	if !l.working {
		return false
	}

	l.working = false
	for i := 0; i < l.routinesNum; i++ {
		l.D <- struct{}{}
	}
	l.waitGroup.Wait()
	return true
}

func (l *LoopMode) Add() {
	l.waitGroup.Add(1)
}

func (l *LoopMode) Done() {
	l.waitGroup.Done()
}

func (l *LoopMode) IsWorking() bool {
	return l.working
}
