// Package graph persists the channel/asset mention graph in Neo4j. Nodes
// are channels, videos, assets, and macro terms; edges record which video
// mentioned which asset and under which sentiment.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherResult is the subset of a Neo4j result the package iterates.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// CypherRunner runs one Cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the subset of a Neo4j session the package uses.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions; tests substitute mocks here.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(managedRunner{tx: tx})
	})
}

func (s driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type managedRunner struct {
	tx neo4j.ManagedTransaction
}

func (r managedRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return r.tx.Run(ctx, cypher, params)
}

// Mention is one video's worth of graph facts, built from an assembled row.
type Mention struct {
	ChannelID   string
	ChannelName string
	VideoID     string
	Title       string
	Published   string
	URL         string
	Sentiment   string
	Tickers     []string
	Macro       []string
}

// MentionGraph is the sole owner of all Neo4j operations.
type MentionGraph struct {
	opener SessionOpener
}

// New creates a MentionGraph on an existing driver.
func New(driver neo4j.DriverWithContext) *MentionGraph {
	return NewWithOpener(driverOpener{driver: driver})
}

// NewWithOpener creates a MentionGraph on a custom session opener.
func NewWithOpener(opener SessionOpener) *MentionGraph {
	return &MentionGraph{opener: opener}
}

// RecordBatch writes a full pass of mentions in a single transaction. Nodes
// and edges are merged, so re-recording the same video is idempotent; the
// sentiment property on the MENTIONS edge reflects the latest pass.
func (g *MentionGraph) RecordBatch(ctx context.Context, mentions []Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, m := range mentions {
			if err := recordMention(ctx, tx, m); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func recordMention(ctx context.Context, tx CypherRunner, m Mention) error {
	cypher := `MERGE (c:Channel {id: $channel_id})
		 SET c.name = $channel_name
		 MERGE (v:Video {id: $video_id})
		 SET v.title = $title, v.published = $published, v.url = $url, v.sentiment = $sentiment
		 MERGE (c)-[:PUBLISHED]->(v)`
	if _, err := tx.Run(ctx, cypher, map[string]any{
		"channel_id":   m.ChannelID,
		"channel_name": m.ChannelName,
		"video_id":     m.VideoID,
		"title":        m.Title,
		"published":    m.Published,
		"url":          m.URL,
		"sentiment":    m.Sentiment,
	}); err != nil {
		return err
	}

	for _, sym := range m.Tickers {
		cypher := `MATCH (v:Video {id: $video_id})
			 MERGE (a:Asset {symbol: $symbol})
			 MERGE (v)-[r:MENTIONS]->(a)
			 SET r.sentiment = $sentiment`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"video_id":  m.VideoID,
			"symbol":    sym,
			"sentiment": m.Sentiment,
		}); err != nil {
			return err
		}
	}

	for _, term := range m.Macro {
		cypher := `MATCH (v:Video {id: $video_id})
			 MERGE (t:MacroTerm {term: $term})
			 MERGE (v)-[:FLAGS]->(t)`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"video_id": m.VideoID,
			"term":     term,
		}); err != nil {
			return err
		}
	}
	return nil
}

// AssetsForChannel returns the asset symbols a channel's recorded videos
// have mentioned.
func (g *MentionGraph) AssetsForChannel(ctx context.Context, channelID string) ([]string, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:Channel {id: $id})-[:PUBLISHED]->(:Video)-[:MENTIONS]->(a:Asset)
		 RETURN DISTINCT a.symbol AS symbol ORDER BY symbol`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": channelID})
	if err != nil {
		return nil, err
	}

	var symbols []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get("symbol"); ok {
			if s, ok := v.(string); ok {
				symbols = append(symbols, s)
			}
		}
	}
	return symbols, result.Err()
}
