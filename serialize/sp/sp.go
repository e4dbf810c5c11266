package sp

type SyncMsgType = uint8

const (
	// SyncProtocolV1 is the version 1 of the sync protocol
	SyncProtocolV1 = 1

	// sync message type
	MsgCatchupReq     = 1
	MsgCatchupResp    = 2
	MsgHashTreeReq    = 3
	MsgHashTreeResp   = 4
	MsgJointBroadcast = 5
)

/*

Unit
+---------+----------------------+
| Version |        Time          |
+---------+-----+----------------+
| ParentsNum    | Parents        |
+---------------+----------------+
| AuthorsNum    | Authors        |
+----------+----+----------------+
| PayloadL |    PayloadHash      |
+----------+---------------------+
| WListL   |  WitnessListHash    |
+----------+---------------------+
| LastBallUnitL | LastBallUnit   |
+----------+----+----------------+
| LastBallL|     LastBall        |
+----------+---------------------+
|           Nonserial            |
+--------------------------------+
(bytes)
Version             1
Time                8
ParentsNum          2
Parents             each: 1 length + hash
AuthorsNum          2
Authors             each: 1 length + address
PayloadHash length  1
PayloadHash         -
WitnessListHash length 1
WitnessListHash     -
LastBallUnit length 1 (0 means absent)
LastBallUnit        -
LastBall length     1 (0 means absent)
LastBall            -
Nonserial           1


Joint
+--------------------------------+
|          Unit:(Unit)           |
+----------+---------------------+
| BallL    |       Ball          |
+----------+---------------------+
(bytes)
Ball length         1 (0 means the unit has no ball yet)
Ball                -


BallRecord
+----------+---------------------+
| UnitL    |       Unit          |
+----------+---------------------+
| BallL    |       Ball          |
+----------+----+----------------+
| ParentBallsNum| ParentBalls    |
+---------------+----------------+
| SkiplistNum   | SkiplistBalls  |
+---------------+----------------+
|           Nonserial            |
+--------------------------------+
(bytes)
Unit length         1
Unit                -
Ball length         1
Ball                -
ParentBallsNum      2
ParentBalls         each: 1 length + hash
SkiplistNum         2
SkiplistBalls       each: 1 length + hash
Nonserial           1


Head
+---------+------+----------+
| Version | Type | Reserved |
+---------+------+----------+
(bytes)
Version     1
Type        1
Reserved    2


CatchupRequest
+--------------------------------+
|            (Head)              |
+---------------+----------------+
| WitnessesNum  | Witnesses      |
+---------------+----------------+
|         LastStableMCI          |
+--------------------------------+
|         LastKnownMCI           |
+--------------------------------+
(bytes)
WitnessesNum        2
Witnesses           each: 1 length + address
LastStableMCI       8
LastKnownMCI        8


CatchupResponse
+--------------------------------+
|            (Head)              |
+--------------------------------+
|            Status              |
+---------------+----------------+
| UnstableNum   | UnstableMCJoints
+---------------+----------------+
| WChangeNum    | WitnessChangeJoints
+---------------+----------------+
| StableNum     | StableLastBallJoints
+---------------+----------------+
| ProofNum      | ProofchainBalls|
+---------------+----------------+
(bytes)
Status              1
each joints/balls list: 2 size + elements


HashTreeRequest
+--------------------------------+
|            (Head)              |
+----------+---------------------+
| FromL    |      FromBall       |
+----------+---------------------+
| ToL      |      ToBall         |
+----------+---------------------+


HashTreeResponse
+--------------------------------+
|            (Head)              |
+--------------------------------+
|            Status              |
+----------+---------------------+
| FromL    |      FromBall       |
+----------+---------------------+
| ToL      |      ToBall         |
+----------+----+----------------+
| BallsNum      | Balls:(BallRecord)
+---------------+----------------+
(bytes)
Status              1
BallsNum            2


JointBroadcast
+--------------------------------+
|            (Head)              |
+--------------------------------+
|         Joint:(Joint)          |
+--------------------------------+
*/
