// bus.go
package bus

import (
	"strconv"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Wildcard matches exactly one token in a subscription topic.
const Wildcard = "+"

// Topic is a sequence of string tokens, e.g. T("rproc", "sub", "ipu", "state").
type Topic []string

// T builds a topic from tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

// Append returns a new topic with extra tokens added.
func (t Topic) Append(tokens ...string) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	out = append(out, tokens...)
	return out
}

func (t Topic) Len() int { return len(t) }

// At returns the token at index i, or "" when out of range.
func (t Topic) At(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

func (t Topic) String() string { return strings.Join(t, "/") }

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the publisher asked for a reply.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok string, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[string]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		if !create {
			return nil
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	root     *node
	qLen     int
	replySeq int
}

// NewBus creates a bus with the given per-subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	// Deliver retained messages already stored under the pattern.
	b.deliverRetained(b.root, sub.topic, sub)
}

// deliverRetained walks the trie along a (possibly wildcarded) pattern and
// hands every stored retained message to the new subscriber.
func (b *Bus) deliverRetained(n *node, pattern Topic, sub *Subscription) {
	if len(pattern) == 0 {
		if n.retained != nil {
			deliver(sub, n.retained)
		}
		return
	}
	tok, rest := pattern[0], pattern[1:]
	if tok == Wildcard {
		for _, c := range n.children {
			b.deliverRetained(c, rest, sub)
		}
		return
	}
	if c := n.child(tok, false); c != nil {
		b.deliverRetained(c, rest, sub)
	}
}

// Publish delivers a message to every matching subscriber and, when the
// message is retained, stores it at its exact topic (nil payload clears).
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match(b.root, msg.Topic, msg)

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
}

// match recurses along the published topic, following both the literal token
// and any wildcard branch registered at each level.
func (b *Bus) match(n *node, topic Topic, msg *Message) {
	if len(topic) == 0 {
		for _, sub := range n.subs {
			deliver(sub, msg)
		}
		return
	}
	tok, rest := topic[0], topic[1:]
	if c := n.child(tok, false); c != nil {
		b.match(c, rest, msg)
	}
	if c := n.child(Wildcard, false); c != nil {
		b.match(c, rest, msg)
	}
}

func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		// Queue full: drop the oldest so the newest always lands.
		<-sub.ch
		sub.ch <- msg
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty branches.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		child := parent.children[sub.topic[i]]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, sub.topic[i])
		} else {
			break
		}
	}
}

func (b *Bus) nextReplyTopic(connID string) Topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replySeq++
	return T("reply", connID, strconv.Itoa(b.replySeq))
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

// NewConnection creates a connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage builds a message originating from this connection.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Request publishes a message carrying a fresh reply topic and returns the
// subscription on which the reply will arrive. The caller unsubscribes when
// done.
func (c *Connection) Request(topic Topic, payload any) *Subscription {
	replyTo := c.bus.nextReplyTopic(c.id)
	sub := c.Subscribe(replyTo)
	c.bus.Publish(&Message{Topic: topic, Payload: payload, ReplyTo: replyTo})
	return sub
}

// Reply answers a message on its ReplyTo topic. No-op when the original
// publisher did not ask for a reply.
func (c *Connection) Reply(orig *Message, payload any, retained bool) {
	if !orig.CanReply() {
		return
	}
	c.bus.Publish(&Message{Topic: orig.ReplyTo, Payload: payload, Retained: retained})
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
