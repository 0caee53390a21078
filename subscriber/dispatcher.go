package subscriber

import (
	"fmt"
	"sync"

	"github.com/Ethernal-Tech/algorand-infrastructure/common"
	"github.com/hashicorp/go-hclog"
)

const (
	// EventBeforePoll fires before every poll with BeforePollMetadata
	EventBeforePoll = "before_poll"
	// EventPoll fires after every successful poll with the *PollResult
	EventPoll = "poll"
	// EventError fires for poll failures and handler failures
	EventError = "error"

	defaultHandlerQueueSize = 1024
)

// TransactionEventName is the routing key for single matched transactions of
// a named filter
func TransactionEventName(filterName string) string {
	return "transaction:" + filterName
}

// BatchEventName is the routing key for the per-poll batch of a named filter
func BatchEventName(filterName string) string {
	return "batch:" + filterName
}

// BeforePollMetadata is the payload of the before_poll event
type BeforePollMetadata struct {
	Watermark    uint64 `json:"watermark"`
	CurrentRound uint64 `json:"current-round"`
}

// EventHandler consumes one emission. Handlers run concurrently with the
// subscriber loop and with each other; a failure never stops other handlers.
type EventHandler func(payload interface{}) error

type dispatcherListener struct {
	event string
	fn    EventHandler
	queue *common.SafeCircularQueue[interface{}]
}

// Dispatcher is a thread safe named event bus. Every registered handler gets
// its own queue and worker, so emissions are FIFO per handler while handlers
// never block each other or the emitter beyond queue capacity.
type Dispatcher struct {
	mutex     sync.Mutex
	listeners map[string][]*dispatcherListener
	queueSize int
	closed    bool
	wg        sync.WaitGroup
	logger    hclog.Logger
}

func NewDispatcher(logger hclog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: map[string][]*dispatcherListener{},
		queueSize: defaultHandlerQueueSize,
		logger:    logger,
	}
}

// On registers a handler for the given event. Every handler for the same event
// receives every emission; emissions are queued to them in registration order
// and each handler consumes its own queue on its own worker.
func (d *Dispatcher) On(event string, handler EventHandler) {
	listener := &dispatcherListener{
		event: event,
		fn:    handler,
		queue: common.NewSafeCircularQueue[interface{}](d.queueSize),
	}

	d.mutex.Lock()

	if d.closed {
		d.mutex.Unlock()

		return
	}

	d.listeners[event] = append(d.listeners[event], listener)
	d.wg.Add(1)
	d.mutex.Unlock()

	go d.runListener(listener)
}

// Emit routes the payload to every handler registered for the event. The
// call enqueues and returns; it does not wait for handlers to finish.
func (d *Dispatcher) Emit(event string, payload interface{}) {
	d.mutex.Lock()
	listeners := d.listeners[event]
	d.mutex.Unlock()

	for _, listener := range listeners {
		listener.queue.Push(payload)
	}
}

// Close stops all listener workers after their queues drain
func (d *Dispatcher) Close() error {
	d.mutex.Lock()

	if d.closed {
		d.mutex.Unlock()

		return nil
	}

	d.closed = true

	for _, listeners := range d.listeners {
		for _, listener := range listeners {
			listener.queue.Close()
		}
	}

	d.mutex.Unlock()

	d.wg.Wait()

	return nil
}

func (d *Dispatcher) runListener(listener *dispatcherListener) {
	defer d.wg.Done()

	for {
		payload, active := listener.queue.Pop()
		if !active {
			return
		}

		d.invoke(listener, payload)
	}
}

// invoke executes one handler call, isolating the caller from user code.
// A failed handler is logged and reported on the error event, except for
// handlers already listening on the error event, which would feed back.
func (d *Dispatcher) invoke(listener *dispatcherListener, payload interface{}) {
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()

		err = listener.fn(payload)
	}()

	if err == nil {
		return
	}

	d.logger.Error("Event handler failed", "event", listener.event, "err", err)

	if listener.event != EventError {
		d.Emit(EventError, err)
	}
}
