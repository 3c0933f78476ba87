// Package influxdb records entity state samples and reconciliation
// outcomes in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Client is a
// statesync.Notifier: register it with Engine.AddNotifier and every
// snapshot, entity patch and reconcile result becomes a point.
//
// # Measurements
//
//	entity_state  tags entity_id, domain, room
//	              fields state (string), value (float, numeric states only)
//	reconcile     tags entity_id, action, resolution
//	              fields attempts (int), converged (bool)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	engine.AddNotifier(client)
//
// Writes are non-blocking and batched (batch_size, flush_interval); write
// failures arrive asynchronously through SetOnError.
package influxdb
