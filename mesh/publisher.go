package mesh

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SceneSummaryMessage is the compact per-plan message published after a build
type SceneSummaryMessage struct {
	PlanID        string  `json:"planId"`
	Rooms         int     `json:"rooms"`
	SkippedRooms  int     `json:"skippedRooms"`
	Walls         int     `json:"walls"`
	InteriorWalls int     `json:"interiorWalls"`
	ExteriorWalls int     `json:"exteriorWalls"`
	Doors         int     `json:"doors"`
	Windows       int     `json:"windows"`
	Meshes        int     `json:"meshes"`
	Vertices      int     `json:"vertices"`
	Faces         int     `json:"faces"`
	FloorArea     float64 `json:"floorArea"`
	Warnings      int     `json:"warnings"`
	Timestamp     int64   `json:"timestamp"`
}

// Publisher publishes built scenes to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	summaries     map[string]*SceneSummaryMessage
	mu            sync.RWMutex
}

// NewPublisher creates a scene publisher. A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // late subscribers get the latest scene
		summaries:     make(map[string]*SceneSummaryMessage),
	}
}

// NewSceneSummary condenses a scene into its summary message
func NewSceneSummary(planID string, scene *Scene) *SceneSummaryMessage {
	return &SceneSummaryMessage{
		PlanID:        planID,
		Rooms:         scene.Stats.Rooms,
		SkippedRooms:  scene.Stats.SkippedRooms,
		Walls:         scene.Stats.Walls,
		InteriorWalls: scene.Stats.InteriorWalls,
		ExteriorWalls: scene.Stats.ExteriorWalls,
		Doors:         scene.Stats.Doors,
		Windows:       scene.Stats.Windows,
		Meshes:        scene.Stats.Meshes,
		Vertices:      scene.Stats.Vertices,
		Faces:         scene.Stats.Faces,
		FloorArea:     scene.Stats.FloorArea,
		Warnings:      len(scene.Warnings),
		Timestamp:     time.Now().Unix(),
	}
}

// PublishScene publishes the scene document, its summary and the combined
// index of all plans:
//
//	{prefix}/{planID}/scene
//	{prefix}/{planID}/summary
//	{prefix}/scenes
func (p *Publisher) PublishScene(planID string, scene *Scene) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	summary := NewSceneSummary(planID, scene)
	p.mu.Lock()
	p.summaries[planID] = summary
	p.mu.Unlock()

	if err := p.publishJSON(fmt.Sprintf("%s/%s/scene", p.publishPrefix, planID), scene); err != nil {
		log.Printf("[MQTT] Error publishing scene for %s: %v", planID, err)
		return err
	}
	if err := p.publishJSON(fmt.Sprintf("%s/%s/summary", p.publishPrefix, planID), summary); err != nil {
		log.Printf("[MQTT] Error publishing summary for %s: %v", planID, err)
		return err
	}
	if err := p.publishIndex(); err != nil {
		log.Printf("[MQTT] Error publishing scene index: %v", err)
		return err
	}

	log.Printf("[MQTT] Published scene %s: %d walls, %d meshes, %d warnings",
		planID, summary.Walls, summary.Meshes, summary.Warnings)
	return nil
}

// PublishError reports a plan that could not be decoded or built
func (p *Publisher) PublishError(planID string, buildErr error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	msg := map[string]interface{}{
		"planId":    planID,
		"error":     buildErr.Error(),
		"timestamp": time.Now().Unix(),
	}
	return p.publishJSON(fmt.Sprintf("%s/%s/error", p.publishPrefix, planID), msg)
}

func (p *Publisher) publishIndex() error {
	p.mu.RLock()
	summaries := make([]*SceneSummaryMessage, 0, len(p.summaries))
	for _, s := range p.summaries {
		summaries = append(summaries, s)
	}
	p.mu.RUnlock()

	if len(summaries) == 0 {
		return nil
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].PlanID < summaries[j].PlanID })

	message := map[string]interface{}{
		"scenes":    summaries,
		"timestamp": time.Now().Unix(),
	}
	return p.publishJSON(fmt.Sprintf("%s/scenes", p.publishPrefix), message)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetSummary returns the last summary published for a plan
func (p *Publisher) GetSummary(planID string) (*SceneSummaryMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.summaries[planID]
	return s, ok
}

// GetAllSummaries returns a copy of every published summary
func (p *Publisher) GetAllSummaries() map[string]*SceneSummaryMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]*SceneSummaryMessage, len(p.summaries))
	for id, s := range p.summaries {
		c := *s
		out[id] = &c
	}
	return out
}

// ClearSummary forgets a plan so it drops out of the index
func (p *Publisher) ClearSummary(planID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.summaries, planID)
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
