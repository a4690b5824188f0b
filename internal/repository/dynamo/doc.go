// Package dynamo implements the repositories on a single DynamoDB table.
//
// Every entity is one item keyed PK = "<KIND>#<id>", SK = "<KIND>". GSI1
// lists a user's entities of one kind (GSI1PK = "USER#<userId>#<KIND>",
// GSI1SK = creation time). GSI2 is sparse and holds only SCHEDULED
// newsletters, sorted by scheduledAt, for the send scheduler.
package dynamo
